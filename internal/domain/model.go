package domain

import "time"

type User struct {
	Id        ID     `json:"id"`
	Username  string `json:"username,omitempty"`
	FirstName string `json:"firstName,omitempty"`
	LastName  string `json:"lastName,omitempty"`
}

type Conversation struct {
	Id        ID        `json:"id"`
	Creator   User      `json:"creator"`
	Recipient User      `json:"recipient"`
	CreatedAt time.Time `json:"createdAt,omitzero"`
}

// Counterpart returns the party of the conversation that is not userId.
func (c Conversation) Counterpart(userId ID) ID {
	if c.Creator.Id == userId {
		return c.Recipient.Id
	}

	return c.Creator.Id
}

type Message struct {
	Id           ID           `json:"id"`
	Content      string       `json:"content,omitempty"`
	Author       User         `json:"author"`
	Conversation Conversation `json:"conversation"`
	CreatedAt    time.Time    `json:"createdAt,omitzero"`
}

type Group struct {
	Id        ID        `json:"id"`
	Title     string    `json:"title,omitempty"`
	Creator   User      `json:"creator"`
	Owner     User      `json:"owner"`
	Users     []User    `json:"users"`
	CreatedAt time.Time `json:"createdAt,omitzero"`
}

func (g Group) HasMember(userId ID) bool {
	for _, user := range g.Users {
		if user.Id == userId {
			return true
		}
	}

	return false
}

type GroupMessage struct {
	Id        ID        `json:"id"`
	Content   string    `json:"content,omitempty"`
	Author    User      `json:"author"`
	Group     Group     `json:"group"`
	CreatedAt time.Time `json:"createdAt,omitzero"`
}

type Friend struct {
	Id        ID        `json:"id"`
	Sender    User      `json:"sender"`
	Receiver  User      `json:"receiver"`
	CreatedAt time.Time `json:"createdAt,omitzero"`
}

// Other returns the friend of userId in this friendship.
func (f Friend) Other(userId ID) User {
	if f.Receiver.Id == userId {
		return f.Sender
	}

	return f.Receiver
}
