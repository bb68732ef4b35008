package domain

import "time"

// Document is the persisted forum aggregate.
type Document struct {
	Posts      []Post     `json:"posts"`
	Replies    []Reply    `json:"replies"`
	Categories []Category `json:"categories"`
	Stats      Stats      `json:"stats"`
}

type Post struct {
	ID         int64     `json:"id"`
	Title      string    `json:"title"`
	Body       string    `json:"body"`
	Category   string    `json:"category"`
	Tags       []string  `json:"tags"`
	AuthorID   string    `json:"authorId"`
	AuthorName string    `json:"authorName"`
	Likes      int       `json:"likes"`
	Replies    int       `json:"replies"`
	Views      int       `json:"views"`
	LikedBy    []string  `json:"likedBy"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

type Reply struct {
	ID         int64     `json:"id"`
	PostID     int64     `json:"postId"`
	Body       string    `json:"body"`
	AuthorID   string    `json:"authorId"`
	AuthorName string    `json:"authorName"`
	Likes      int       `json:"likes"`
	LikedBy    []string  `json:"likedBy"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

type Category struct {
	Name        string `json:"name"`
	Slug        string `json:"slug"`
	Description string `json:"description"`
	Count       int    `json:"count"`
}

type Stats struct {
	TotalPosts   int `json:"totalPosts"`
	TotalReplies int `json:"totalReplies"`
	TotalUsers   int `json:"totalUsers"`
	// High-water marks; ids are never reused after a delete.
	LastPostID  int64 `json:"lastPostId"`
	LastReplyID int64 `json:"lastReplyId"`
}

// PostDetail is a post joined with its replies, oldest first.
type PostDetail struct {
	Post
	ReplyList []Reply `json:"replyList"`
}

type PostPage struct {
	Items      []Post `json:"items"`
	Total      int    `json:"total"`
	Page       int    `json:"page"`
	TotalPages int    `json:"totalPages"`
}

type LikeResult struct {
	Likes   int  `json:"likes"`
	IsLiked bool `json:"isLiked"`
}
