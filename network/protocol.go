package network

const (
	MsgTypeHeartbeat = 1
	MsgTypeRegister  = 2

	MsgTypeCreateRoom       = 101
	MsgTypeInviteFriend     = 102
	MsgTypeAcceptInvitation = 103
	MsgTypeLeaveRoom        = 104

	MsgTypeSendGameData  = 201
	MsgTypeUpdatePaddles = 202
	MsgTypePauseGame     = 203
	MsgTypeResumeGame    = 204
	MsgTypeEndGame       = 205

	MsgTypeGameData       = 301
	MsgTypeRoomInvitation = 302
	MsgTypePlayGame       = 303
	MsgTypeRoomClosed     = 304
	MsgTypeMatchSummary   = 305
	MsgTypeMemberLeft     = 306

	MsgTypeError = 400
)
