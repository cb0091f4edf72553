package contents

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/nasermirzaei89/spacetraveling/prismic"
)

const (
	postType = "post"

	// PageSize is the number of posts per page, both on the initial load and on every load more.
	PageSize = 1
)

type ContentAPI interface {
	Query(ctx context.Context, predicates []string, opts prismic.QueryOptions) (*prismic.SearchResponse, error)
	GetByUID(ctx context.Context, documentType, uid string) (*prismic.Document, error)
	FetchPage(ctx context.Context, pageURL string) (*prismic.SearchResponse, error)
}

var _ ContentAPI = (*prismic.Client)(nil)

type Service struct {
	api ContentAPI
}

func NewService(api ContentAPI) *Service {
	return &Service{
		api: api,
	}
}

// ListPosts loads the first page of posts.
func (svc *Service) ListPosts(ctx context.Context) (Pagination, error) {
	res, err := svc.api.Query(
		ctx,
		[]string{prismic.At("document.type", postType)},
		prismic.QueryOptions{
			Fetch:    []string{"post.title", "post.subtitle", "post.author"},
			PageSize: PageSize,
		},
	)
	if err != nil {
		return Pagination{}, fmt.Errorf("failed to query posts: %w", err)
	}

	page, err := paginationFromResponse(res)
	if err != nil {
		return Pagination{}, fmt.Errorf("failed to map posts: %w", err)
	}

	return page, nil
}

// FetchPage loads the page behind a next page cursor.
func (svc *Service) FetchPage(ctx context.Context, nextPage string) (Pagination, error) {
	res, err := svc.api.FetchPage(ctx, nextPage)
	if err != nil {
		return Pagination{}, fmt.Errorf("failed to fetch next page: %w", err)
	}

	page, err := paginationFromResponse(res)
	if err != nil {
		return Pagination{}, fmt.Errorf("failed to map posts: %w", err)
	}

	return page, nil
}

func (svc *Service) GetPost(ctx context.Context, uid string) (*PostDetail, error) {
	doc, err := svc.api.GetByUID(ctx, postType, uid)
	if err != nil {
		var notFoundErr prismic.DocumentNotFoundError
		if errors.As(err, &notFoundErr) {
			return nil, PostNotFoundError{UID: uid}
		}

		return nil, fmt.Errorf("failed to get post: %w", err)
	}

	post, err := PostDetailFromDocument(*doc)
	if err != nil {
		return nil, fmt.Errorf("failed to map post: %w", err)
	}

	return post, nil
}

func paginationFromResponse(res *prismic.SearchResponse) (Pagination, error) {
	page := Pagination{
		NextPage: "",
		Results:  make([]Post, 0, len(res.Results)),
	}

	if res.NextPage != nil {
		page.NextPage = *res.NextPage
	}

	for _, doc := range res.Results {
		post, err := PostFromDocument(doc)
		if err != nil {
			return Pagination{}, err
		}

		page.Results = append(page.Results, post)
	}

	return page, nil
}

type postFields struct {
	Title    string `json:"title"`
	Subtitle string `json:"subtitle"`
	Author   string `json:"author"`
}

// PostFromDocument keeps uid, first publication date, title, subtitle and author.
// Everything else in the document is dropped.
func PostFromDocument(doc prismic.Document) (Post, error) {
	var fields postFields

	err := decodeData(doc, &fields)
	if err != nil {
		return Post{}, err
	}

	post := Post{
		UID:                  "",
		FirstPublicationDate: doc.FirstPublicationDate,
		Data: PostData{
			Title:    fields.Title,
			Subtitle: fields.Subtitle,
			Author:   fields.Author,
		},
	}

	if doc.UID != nil {
		post.UID = *doc.UID
	}

	return post, nil
}

type postDetailFields struct {
	postFields

	Banner struct {
		URL string `json:"url"`
		Alt string `json:"alt"`
	} `json:"banner"`
	Content []struct {
		Heading string `json:"heading"`
		Body    []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"body"`
	} `json:"content"`
}

func PostDetailFromDocument(doc prismic.Document) (*PostDetail, error) {
	var fields postDetailFields

	err := decodeData(doc, &fields)
	if err != nil {
		return nil, err
	}

	post := &PostDetail{
		UID:                  "",
		FirstPublicationDate: doc.FirstPublicationDate,
		Data: PostDetailData{
			Title:    fields.Title,
			Subtitle: fields.Subtitle,
			Author:   fields.Author,
			Banner:   Image{URL: fields.Banner.URL, Alt: fields.Banner.Alt},
			Content:  make([]Section, 0, len(fields.Content)),
		},
	}

	if doc.UID != nil {
		post.UID = *doc.UID
	}

	for _, content := range fields.Content {
		section := Section{
			Heading: content.Heading,
			Body:    make([]Paragraph, 0, len(content.Body)),
		}

		for _, block := range content.Body {
			section.Body = append(section.Body, Paragraph{Type: block.Type, Text: block.Text})
		}

		post.Data.Content = append(post.Data.Content, section)
	}

	return post, nil
}

func decodeData(doc prismic.Document, v any) error {
	if len(doc.Data) == 0 || string(doc.Data) == "null" {
		return DocumentDataMissingError{ID: doc.ID}
	}

	err := json.Unmarshal(doc.Data, v)
	if err != nil {
		return fmt.Errorf("failed to decode data of document %s: %w", doc.ID, err)
	}

	return nil
}

type DocumentDataMissingError struct {
	ID string
}

func (err DocumentDataMissingError) Error() string {
	return fmt.Sprintf("document %s has no data", err.ID)
}
