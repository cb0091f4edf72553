package prismic

import (
	"errors"
	"fmt"
)

var ErrNoMasterRef = errors.New("no master ref")

type StatusError struct {
	StatusCode int
	URL        string
}

func (err StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d from %s", err.StatusCode, err.URL)
}

type ForeignURLError struct {
	URL string
}

func (err ForeignURLError) Error() string {
	return fmt.Sprintf("url %q does not belong to the content api", err.URL)
}

type DocumentNotFoundError struct {
	Type string
	UID  string
}

func (err DocumentNotFoundError) Error() string {
	return fmt.Sprintf("%s document with uid '%s' not found", err.Type, err.UID)
}
