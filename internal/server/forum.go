package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	forumdomain "github.com/smallbiznis/talentloop/internal/forum/domain"
	"github.com/smallbiznis/talentloop/pkg/db/pagination"
)

type createPostRequest struct {
	Title      string   `json:"title"`
	Body       string   `json:"body"`
	Category   string   `json:"category"`
	Tags       []string `json:"tags"`
	AuthorID   string   `json:"authorId"`
	AuthorName string   `json:"authorName"`
}

type updatePostRequest struct {
	Title *string   `json:"title"`
	Body  *string   `json:"body"`
	Tags  *[]string `json:"tags"`
}

type moveCategoryRequest struct {
	Category string `json:"category"`
}

type createReplyRequest struct {
	Body       string `json:"body"`
	AuthorID   string `json:"authorId"`
	AuthorName string `json:"authorName"`
}

type likeRequest struct {
	UserID string `json:"userId"`
}

func (s *Server) ListPosts(c *gin.Context) {
	var query struct {
		pagination.Pagination
		Category string `form:"category"`
		Search   string `form:"search"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.forumSvc.GetPosts(c.Request.Context(), forumdomain.PostFilter{
		Pagination: query.Pagination,
		Category:   strings.TrimSpace(query.Category),
		Search:     strings.TrimSpace(query.Search),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) CreatePost(c *gin.Context) {
	var req createPostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	if strings.TrimSpace(req.Title) == "" {
		AbortWithError(c, newValidationError("title", "required", "title is required"))
		return
	}
	if strings.TrimSpace(req.Body) == "" {
		AbortWithError(c, newValidationError("body", "required", "body is required"))
		return
	}

	post, err := s.forumSvc.AddPost(c.Request.Context(), forumdomain.CreatePostRequest{
		Title:      strings.TrimSpace(req.Title),
		Body:       req.Body,
		Category:   strings.TrimSpace(req.Category),
		Tags:       req.Tags,
		AuthorID:   strings.TrimSpace(req.AuthorID),
		AuthorName: strings.TrimSpace(req.AuthorName),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": post})
}

// GetPost answers a missing post with null data rather than 404.
func (s *Server) GetPost(c *gin.Context) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	detail, err := s.forumSvc.GetPostByID(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": detail})
}

func (s *Server) UpdatePost(c *gin.Context) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}
	var req updatePostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	if req.Title != nil && strings.TrimSpace(*req.Title) == "" {
		AbortWithError(c, newValidationError("title", "required", "title cannot be empty"))
		return
	}

	post, err := s.forumSvc.UpdatePost(c.Request.Context(), id, forumdomain.UpdatePostRequest{
		Title: req.Title,
		Body:  req.Body,
		Tags:  req.Tags,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": post})
}

func (s *Server) DeletePost(c *gin.Context) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	deleted, err := s.forumSvc.DeletePost(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if !deleted {
		AbortWithError(c, ErrNotFound)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{"deleted": true}})
}

func (s *Server) MovePostCategory(c *gin.Context) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}
	var req moveCategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Category) == "" {
		AbortWithError(c, newValidationError("category", "required", "category is required"))
		return
	}

	post, err := s.forumSvc.MoveCategory(c.Request.Context(), id, strings.TrimSpace(req.Category))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": post})
}

func (s *Server) TogglePostLike(c *gin.Context) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}
	var req likeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	result, err := s.forumSvc.TogglePostLike(c.Request.Context(), id, req.UserID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if result == nil {
		AbortWithError(c, ErrNotFound)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": result})
}

func (s *Server) CreateReply(c *gin.Context) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}
	var req createReplyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	if strings.TrimSpace(req.Body) == "" {
		AbortWithError(c, newValidationError("body", "required", "body is required"))
		return
	}

	reply, err := s.forumSvc.AddReply(c.Request.Context(), forumdomain.CreateReplyRequest{
		PostID:     id,
		Body:       req.Body,
		AuthorID:   req.AuthorID,
		AuthorName: req.AuthorName,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": reply})
}

func (s *Server) DeleteReply(c *gin.Context) {
	postID, err := parseIDParam(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}
	replyID, err := parseIDParam(c, "replyId")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	deleted, err := s.forumSvc.DeleteReply(c.Request.Context(), postID, replyID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if !deleted {
		AbortWithError(c, ErrNotFound)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{"deleted": true}})
}

func (s *Server) ToggleReplyLike(c *gin.Context) {
	postID, err := parseIDParam(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}
	replyID, err := parseIDParam(c, "replyId")
	if err != nil {
		AbortWithError(c, err)
		return
	}
	var req likeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	result, err := s.forumSvc.ToggleReplyLike(c.Request.Context(), postID, replyID, req.UserID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if result == nil {
		AbortWithError(c, ErrNotFound)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": result})
}

func (s *Server) GetForumStats(c *gin.Context) {
	stats, err := s.forumSvc.GetForumStats(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": stats})
}

func (s *Server) ListCategories(c *gin.Context) {
	categories, err := s.forumSvc.GetCategories(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": categories})
}
