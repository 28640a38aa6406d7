package domain

import "fmt"

func ConversationRoom(conversationId ID) string {
	return fmt.Sprintf("conversation-%d", conversationId)
}

func GroupRoom(groupId ID) string {
	return fmt.Sprintf("group-%d", groupId)
}
