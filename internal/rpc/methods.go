package rpc

// Inbound methods (client to gateway).
const (
	MethodHeartbeat           = "heartbeat"
	MethodGetOnlineGroupUsers = "getOnlineGroupUsers"
	MethodCreateMessage       = "createMessage"
	MethodConversationJoin    = "onConversationJoin"
	MethodConversationLeave   = "onConversationLeave"
	MethodGroupJoin           = "onGroupJoin"
	MethodGroupLeave          = "onGroupLeave"
	MethodTypingStart         = "onTypingStart"
	MethodTypingStop          = "onTypingStop"
	MethodGetOnlineFriends    = "getOnlineFriends"
)

// Outbound events (gateway to client).
const (
	EventConnected                = "connected"
	EventOnlineGroupUsersReceived = "onlineGroupUsersReceived"
	EventUserJoin                 = "userJoin"
	EventUserLeave                = "userLeave"
	EventUserGroupJoin            = "userGroupJoin"
	EventUserGroupLeave           = "userGroupLeave"
	EventTypingStart              = "onTypingStart"
	EventTypingStop               = "onTypingStop"
	EventMessage                  = "onMessage"
	EventConversation             = "onConversation"
	EventMessageDelete            = "onMessageDelete"
	EventMessageUpdate            = "onMessageUpdate"
	EventGroupMessage             = "onGroupMessage"
	EventGroupCreate              = "onGroupCreate"
	EventGroupMessageUpdate       = "onGroupMessageUpdate"
	EventGroupMessageDelete       = "onGroupMessageDelete"
	EventGroupReceivedNewUser     = "onGroupReceivedNewUser"
	EventGroupUserAdd             = "onGroupUserAdd"
	EventGroupRemove              = "onGroupRemove"
	EventGroupRecipientRemoved    = "onGroupRecipientRemoved"
	EventGroupOwnerUpdate         = "onGroupOwnerUpdate"
	EventGroupParticipantLeft     = "onGroupParticipantLeft"
	EventOnlineFriends            = "getOnlineFriends"
)
