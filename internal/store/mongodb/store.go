package mongodb

import (
	"context"
	"errors"
	"time"

	"github.com/goevery/gateway/internal/domain"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
)

type User struct {
	Id        int64  `bson:"_id"`
	Username  string `bson:"username"`
	FirstName string `bson:"firstName"`
	LastName  string `bson:"lastName"`
}

type Conversation struct {
	Id         int64     `bson:"_id"`
	Creator    User      `bson:"creator"`
	Recipient  User      `bson:"recipient"`
	CreateTime time.Time `bson:"createTime"`
}

type Group struct {
	Id         int64     `bson:"_id"`
	Title      string    `bson:"title"`
	Creator    User      `bson:"creator"`
	Owner      User      `bson:"owner"`
	Users      []User    `bson:"users"`
	CreateTime time.Time `bson:"createTime"`
}

type Friend struct {
	Id         int64     `bson:"_id"`
	Sender     User      `bson:"sender"`
	Receiver   User      `bson:"receiver"`
	CreateTime time.Time `bson:"createTime"`
}

// Store reads the records written by the message, group and friend
// services. The gateway never writes to these collections.
type Store struct {
	conversations *mongo.Collection
	groups        *mongo.Collection
	friends       *mongo.Collection
}

func NewStore(client *mongo.Client, databaseName string) *Store {
	database := client.Database(databaseName)

	return &Store{
		conversations: database.Collection("conversations"),
		groups:        database.Collection("groups"),
		friends:       database.Collection("friends"),
	}
}

func (s *Store) Setup(ctx context.Context) error {
	_, err := s.groups.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "users._id", Value: 1}},
	})
	if err != nil {
		return err
	}

	_, err = s.friends.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "sender._id", Value: 1}}},
		{Keys: bson.D{{Key: "receiver._id", Value: 1}}},
	})

	return err
}

func (s *Store) FindConversationById(ctx context.Context, id domain.ID) (domain.Conversation, bool, error) {
	var conversation Conversation
	err := s.conversations.FindOne(ctx, bson.D{{Key: "_id", Value: int64(id)}}).Decode(&conversation)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return domain.Conversation{}, false, nil
	}
	if err != nil {
		return domain.Conversation{}, false, err
	}

	return conversation.toDomain(), true, nil
}

func (s *Store) FindGroupById(ctx context.Context, id domain.ID) (domain.Group, bool, error) {
	var group Group
	err := s.groups.FindOne(ctx, bson.D{{Key: "_id", Value: int64(id)}}).Decode(&group)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return domain.Group{}, false, nil
	}
	if err != nil {
		return domain.Group{}, false, err
	}

	return group.toDomain(), true, nil
}

func (s *Store) GetFriends(ctx context.Context, userId domain.ID) ([]domain.Friend, error) {
	filter := bson.M{
		"$or": bson.A{
			bson.M{"sender._id": int64(userId)},
			bson.M{"receiver._id": int64(userId)},
		},
	}

	cursor, err := s.friends.Find(ctx, filter)
	if err != nil {
		return nil, err
	}

	var mongoFriends []Friend
	err = cursor.All(ctx, &mongoFriends)
	if err != nil {
		return nil, err
	}

	friends := make([]domain.Friend, len(mongoFriends))
	for i, f := range mongoFriends {
		friends[i] = domain.Friend{
			Id:        domain.ID(f.Id),
			Sender:    f.Sender.toDomain(),
			Receiver:  f.Receiver.toDomain(),
			CreatedAt: f.CreateTime,
		}
	}

	return friends, nil
}

func (u User) toDomain() domain.User {
	return domain.User{
		Id:        domain.ID(u.Id),
		Username:  u.Username,
		FirstName: u.FirstName,
		LastName:  u.LastName,
	}
}

func (c Conversation) toDomain() domain.Conversation {
	return domain.Conversation{
		Id:        domain.ID(c.Id),
		Creator:   c.Creator.toDomain(),
		Recipient: c.Recipient.toDomain(),
		CreatedAt: c.CreateTime,
	}
}

func (g Group) toDomain() domain.Group {
	users := make([]domain.User, len(g.Users))
	for i, u := range g.Users {
		users[i] = u.toDomain()
	}

	return domain.Group{
		Id:        domain.ID(g.Id),
		Title:     g.Title,
		Creator:   g.Creator.toDomain(),
		Owner:     g.Owner.toDomain(),
		Users:     users,
		CreatedAt: g.CreateTime,
	}
}
