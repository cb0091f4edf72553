package contents

import (
	"fmt"
	"slices"
	"strings"
)

type Post struct {
	UID                  string
	FirstPublicationDate *string
	Data                 PostData
}

type PostData struct {
	Title    string
	Subtitle string
	Author   string
}

// Pagination is the listing view state: the posts loaded so far and the cursor of the next page.
type Pagination struct {
	NextPage string
	Results  []Post
}

func (p Pagination) HasNextPage() bool {
	return p.NextPage != ""
}

// Append returns a new Pagination with page's results after p's and page's cursor.
// p is left untouched.
func (p Pagination) Append(page Pagination) Pagination {
	results := make([]Post, 0, len(p.Results)+len(page.Results))
	results = append(results, p.Results...)
	results = append(results, page.Results...)

	return Pagination{
		NextPage: page.NextPage,
		Results:  results,
	}
}

func (p Pagination) clone() Pagination {
	return Pagination{
		NextPage: p.NextPage,
		Results:  slices.Clone(p.Results),
	}
}

type PostDetail struct {
	UID                  string
	FirstPublicationDate *string
	Data                 PostDetailData
}

type PostDetailData struct {
	Title    string
	Subtitle string
	Author   string
	Banner   Image
	Content  []Section
}

type Image struct {
	URL string
	Alt string
}

type Section struct {
	Heading string
	Body    []Paragraph
}

type Paragraph struct {
	Type string
	Text string
}

const wordsPerMinute = 200

// ReadingTime estimates the minutes needed to read the post.
func (p PostDetail) ReadingTime() int {
	words := 0

	for _, section := range p.Data.Content {
		words += len(strings.Fields(section.Heading))

		for _, paragraph := range section.Body {
			words += len(strings.Fields(paragraph.Text))
		}
	}

	return (words + wordsPerMinute - 1) / wordsPerMinute
}

type PostNotFoundError struct {
	UID string
}

func (err PostNotFoundError) Error() string {
	return fmt.Sprintf("post with uid '%s' not found", err.UID)
}
