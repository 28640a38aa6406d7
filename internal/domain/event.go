package domain

// Payloads of the domain events produced outside the gateway.

type CreateMessageEvent struct {
	Message Message `json:"message"`
}

type DeleteMessageEvent struct {
	UserId         ID `json:"userId"`
	MessageId      ID `json:"messageId"`
	ConversationId ID `json:"conversationId"`
}

type CreateGroupMessageEvent struct {
	Message GroupMessage `json:"message"`
	Group   Group        `json:"group"`
}

type DeleteGroupMessageEvent struct {
	UserId    ID `json:"userId"`
	MessageId ID `json:"messageId"`
	GroupId   ID `json:"groupId"`
}

type AddGroupUserEvent struct {
	Group Group `json:"group"`
	User  User  `json:"user"`
}

type RemoveGroupUserEvent struct {
	Group Group `json:"group"`
	User  User  `json:"user"`
}

type GroupUserLeaveEvent struct {
	Group  Group `json:"group"`
	UserId ID    `json:"userId"`
}
