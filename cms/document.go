package cms

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

type Document struct {
	ID                   string
	UID                  string
	Type                 string
	FirstPublicationDate *time.Time
	LastPublicationDate  *time.Time
	Data                 json.RawMessage
}

type Filter struct {
	Type string
	UID  string
}

type DocumentRepository interface {
	Insert(ctx context.Context, doc *Document) (err error)
	Count(ctx context.Context, filter Filter) (count int, err error)
	List(ctx context.Context, filter Filter, offset, limit int) (docs []*Document, err error)
}

type DocumentAlreadyExistsError struct {
	Type string
	UID  string
}

func (err DocumentAlreadyExistsError) Error() string {
	return fmt.Sprintf("%s document with uid '%s' already exists", err.Type, err.UID)
}

type InvalidQueryError struct {
	Reason string
}

func (err InvalidQueryError) Error() string {
	return "invalid query: " + err.Reason
}
