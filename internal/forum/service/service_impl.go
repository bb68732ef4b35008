package service

import (
	"context"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/smallbiznis/talentloop/internal/clock"
	"github.com/smallbiznis/talentloop/internal/config"
	"github.com/smallbiznis/talentloop/internal/forum/domain"
	"github.com/smallbiznis/talentloop/internal/observability/metrics"
	"github.com/smallbiznis/talentloop/pkg/docstore"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const documentName = "forum.json"

type Params struct {
	fx.In

	Log     *zap.Logger
	Cfg     config.Config
	Clock   clock.Clock
	Metrics *metrics.Metrics `optional:"true"`
}

// Service is the single writer of the forum document. Every operation holds
// the mutex across load, mutate and save.
type Service struct {
	mu      sync.Mutex
	log     *zap.Logger
	backend docstore.Backend[domain.Document]
	clock   clock.Clock
	metrics *metrics.Metrics
}

func New(p Params) domain.Service {
	backend := docstore.NewFileBackend(filepath.Join(p.Cfg.DocumentDir, documentName), EmptyDocument)
	return NewService(p.Log, backend, p.Clock, p.Metrics)
}

func NewService(log *zap.Logger, backend docstore.Backend[domain.Document], c clock.Clock, m *metrics.Metrics) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	if c == nil {
		c = clock.New()
	}
	return &Service{
		log:     log.Named("forum.service"),
		backend: backend,
		clock:   c,
		metrics: m,
	}
}

func (s *Service) AddPost(ctx context.Context, req domain.CreatePostRequest) (domain.Post, error) {
	var created domain.Post
	err := s.mutate(ctx, "add_post", func(doc *domain.Document, now time.Time) (bool, error) {
		created = domain.Post{
			ID:         nextPostID(doc),
			Title:      strings.TrimSpace(req.Title),
			Body:       req.Body,
			Category:   strings.TrimSpace(req.Category),
			Tags:       normalizeTags(trimAll(req.Tags)),
			AuthorID:   strings.TrimSpace(req.AuthorID),
			AuthorName: strings.TrimSpace(req.AuthorName),
			LikedBy:    []string{},
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		doc.Posts = append([]domain.Post{created}, doc.Posts...)
		adjustCategory(doc, created.Category, 1)
		return true, nil
	})
	if err != nil {
		return domain.Post{}, err
	}
	return created, nil
}

func (s *Service) UpdatePost(ctx context.Context, id int64, req domain.UpdatePostRequest) (domain.Post, error) {
	var updated domain.Post
	err := s.mutate(ctx, "update_post", func(doc *domain.Document, now time.Time) (bool, error) {
		idx := findPost(doc, id)
		if idx < 0 {
			return false, domain.ErrNotFound
		}
		post := &doc.Posts[idx]
		if req.Title != nil {
			post.Title = strings.TrimSpace(*req.Title)
		}
		if req.Body != nil {
			post.Body = *req.Body
		}
		if req.Tags != nil {
			post.Tags = normalizeTags(trimAll(*req.Tags))
		}
		post.UpdatedAt = now
		updated = *post
		return true, nil
	})
	if err != nil {
		return domain.Post{}, err
	}
	return updated, nil
}

func (s *Service) MoveCategory(ctx context.Context, id int64, category string) (domain.Post, error) {
	category = strings.TrimSpace(category)
	var moved domain.Post
	err := s.mutate(ctx, "move_category", func(doc *domain.Document, now time.Time) (bool, error) {
		idx := findPost(doc, id)
		if idx < 0 {
			return false, domain.ErrNotFound
		}
		if findCategory(doc, category) < 0 {
			return false, domain.ErrUnknownCategory
		}
		post := &doc.Posts[idx]
		if post.Category == category {
			moved = *post
			return false, nil
		}
		adjustCategory(doc, post.Category, -1)
		adjustCategory(doc, category, 1)
		post.Category = category
		post.UpdatedAt = now
		moved = *post
		return true, nil
	})
	if err != nil {
		return domain.Post{}, err
	}
	return moved, nil
}

func (s *Service) DeletePost(ctx context.Context, id int64) (bool, error) {
	deleted := false
	err := s.mutate(ctx, "delete_post", func(doc *domain.Document, _ time.Time) (bool, error) {
		idx := findPost(doc, id)
		if idx < 0 {
			return false, nil
		}
		category := doc.Posts[idx].Category
		doc.Posts = slices.Delete(doc.Posts, idx, idx+1)
		doc.Replies = slices.DeleteFunc(doc.Replies, func(r domain.Reply) bool {
			return r.PostID == id
		})
		adjustCategory(doc, category, -1)
		deleted = true
		return true, nil
	})
	return deleted, err
}

func (s *Service) AddReply(ctx context.Context, req domain.CreateReplyRequest) (domain.Reply, error) {
	var created domain.Reply
	err := s.mutate(ctx, "add_reply", func(doc *domain.Document, now time.Time) (bool, error) {
		idx := findPost(doc, req.PostID)
		if idx < 0 {
			return false, domain.ErrParentNotFound
		}
		created = domain.Reply{
			ID:         nextReplyID(doc),
			PostID:     req.PostID,
			Body:       req.Body,
			AuthorID:   strings.TrimSpace(req.AuthorID),
			AuthorName: strings.TrimSpace(req.AuthorName),
			LikedBy:    []string{},
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		doc.Replies = append(doc.Replies, created)
		doc.Posts[idx].Replies++
		doc.Posts[idx].UpdatedAt = now
		return true, nil
	})
	if err != nil {
		return domain.Reply{}, err
	}
	return created, nil
}

func (s *Service) DeleteReply(ctx context.Context, postID, replyID int64) (bool, error) {
	deleted := false
	err := s.mutate(ctx, "delete_reply", func(doc *domain.Document, now time.Time) (bool, error) {
		idx := findPost(doc, postID)
		if idx < 0 {
			return false, domain.ErrParentNotFound
		}
		replyIdx := slices.IndexFunc(doc.Replies, func(r domain.Reply) bool {
			return r.ID == replyID && r.PostID == postID
		})
		if replyIdx < 0 {
			return false, nil
		}
		doc.Replies = slices.Delete(doc.Replies, replyIdx, replyIdx+1)
		post := &doc.Posts[idx]
		post.Replies = max(0, post.Replies-1)
		post.UpdatedAt = now
		deleted = true
		return true, nil
	})
	return deleted, err
}

func (s *Service) TogglePostLike(ctx context.Context, postID int64, userID string) (*domain.LikeResult, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, domain.ErrInvalidUser
	}
	var result *domain.LikeResult
	err := s.mutate(ctx, "toggle_post_like", func(doc *domain.Document, now time.Time) (bool, error) {
		idx := findPost(doc, postID)
		if idx < 0 {
			return false, nil
		}
		post := &doc.Posts[idx]
		var liked bool
		post.LikedBy, liked = toggle(post.LikedBy, userID)
		post.Likes = len(post.LikedBy)
		post.UpdatedAt = now
		result = &domain.LikeResult{Likes: post.Likes, IsLiked: liked}
		return true, nil
	})
	return result, err
}

func (s *Service) ToggleReplyLike(ctx context.Context, postID, replyID int64, userID string) (*domain.LikeResult, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, domain.ErrInvalidUser
	}
	var result *domain.LikeResult
	err := s.mutate(ctx, "toggle_reply_like", func(doc *domain.Document, now time.Time) (bool, error) {
		idx := slices.IndexFunc(doc.Replies, func(r domain.Reply) bool {
			return r.ID == replyID && r.PostID == postID
		})
		if idx < 0 {
			return false, nil
		}
		reply := &doc.Replies[idx]
		var liked bool
		reply.LikedBy, liked = toggle(reply.LikedBy, userID)
		reply.Likes = len(reply.LikedBy)
		reply.UpdatedAt = now
		result = &domain.LikeResult{Likes: reply.Likes, IsLiked: liked}
		return true, nil
	})
	return result, err
}

func (s *Service) GetPosts(ctx context.Context, filter domain.PostFilter) (domain.PostPage, error) {
	doc, err := s.load(ctx)
	if err != nil {
		return domain.PostPage{}, err
	}

	category := strings.TrimSpace(filter.Category)
	search := strings.ToLower(strings.TrimSpace(filter.Search))

	matched := make([]domain.Post, 0, len(doc.Posts))
	for _, post := range doc.Posts {
		if category != "" && post.Category != category {
			continue
		}
		if search != "" && !matchesSearch(post, search) {
			continue
		}
		matched = append(matched, post)
	}
	slices.SortStableFunc(matched, func(a, b domain.Post) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return compareInt64(b.ID, a.ID)
	})

	total := len(matched)
	window := filter.Pagination.Window(total)

	return domain.PostPage{
		Items:      append([]domain.Post{}, matched[window.Start:window.End]...),
		Total:      total,
		Page:       window.Page,
		TotalPages: window.TotalPages,
	}, nil
}

// GetPostByID counts a view on every successful lookup.
func (s *Service) GetPostByID(ctx context.Context, id int64) (*domain.PostDetail, error) {
	var detail *domain.PostDetail
	err := s.mutate(ctx, "view_post", func(doc *domain.Document, now time.Time) (bool, error) {
		idx := findPost(doc, id)
		if idx < 0 {
			return false, nil
		}
		post := &doc.Posts[idx]
		post.Views++
		post.UpdatedAt = now

		replies := make([]domain.Reply, 0, post.Replies)
		for _, r := range doc.Replies {
			if r.PostID == id {
				replies = append(replies, r)
			}
		}
		slices.SortStableFunc(replies, func(a, b domain.Reply) int {
			if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
				return c
			}
			return compareInt64(a.ID, b.ID)
		})
		detail = &domain.PostDetail{Post: *post, ReplyList: replies}
		return true, nil
	})
	return detail, err
}

func (s *Service) GetForumStats(ctx context.Context) (domain.Stats, error) {
	doc, err := s.load(ctx)
	if err != nil {
		return domain.Stats{}, err
	}
	return doc.Stats, nil
}

func (s *Service) GetCategories(ctx context.Context) ([]domain.Category, error) {
	doc, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	return doc.Categories, nil
}

func (s *Service) load(ctx context.Context) (domain.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, err := s.backend.Load(ctx)
	if err != nil {
		return domain.Document{}, err
	}
	normalizeDocument(&doc)
	return doc, nil
}

// mutate runs fn on the loaded document and saves it when fn reports a
// change. Stats are recomputed before every save.
func (s *Service) mutate(ctx context.Context, op string, fn func(doc *domain.Document, now time.Time) (bool, error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.backend.Load(ctx)
	if err != nil {
		s.log.Error("load forum document", zap.String("operation", op), zap.Error(err))
		return err
	}
	normalizeDocument(&doc)

	changed, err := fn(&doc, s.clock.Now())
	if err != nil || !changed {
		return err
	}

	recomputeStats(&doc)
	if err := s.backend.Save(ctx, doc); err != nil {
		s.log.Error("save forum document", zap.String("operation", op), zap.Error(err))
		return err
	}
	s.metrics.RecordForumMutation(ctx, op)
	return nil
}

func matchesSearch(post domain.Post, needle string) bool {
	if strings.Contains(strings.ToLower(post.Title), needle) ||
		strings.Contains(strings.ToLower(post.Body), needle) {
		return true
	}
	for _, tag := range post.Tags {
		if strings.Contains(strings.ToLower(tag), needle) {
			return true
		}
	}
	return false
}

func trimAll(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		out = append(out, strings.TrimSpace(v))
	}
	return out
}

func compareInt64(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}
