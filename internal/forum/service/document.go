package service

import (
	"github.com/gosimple/slug"
	"github.com/smallbiznis/talentloop/internal/forum/domain"
)

var defaultCategories = []struct {
	name        string
	description string
}{
	{"General", "Anything about work and hiring"},
	{"Job Search", "Finding roles, applications and offers"},
	{"Hiring", "Recruiting, sourcing and interviewing candidates"},
	{"Career Advice", "Growth, mentoring and switching paths"},
	{"Engineering", "Software and infrastructure roles"},
	{"UX Design", "Product and interaction design"},
}

// EmptyDocument is the document used before anything has been persisted.
func EmptyDocument() domain.Document {
	categories := make([]domain.Category, 0, len(defaultCategories))
	for _, c := range defaultCategories {
		categories = append(categories, domain.Category{
			Name:        c.name,
			Slug:        slug.Make(c.name),
			Description: c.description,
		})
	}
	return domain.Document{
		Posts:      []domain.Post{},
		Replies:    []domain.Reply{},
		Categories: categories,
	}
}

// normalizeDocument replaces collections a stored document left out with
// empty ones. Category defaults only apply to a document that was never
// written.
func normalizeDocument(doc *domain.Document) {
	if doc.Posts == nil {
		doc.Posts = []domain.Post{}
	}
	if doc.Replies == nil {
		doc.Replies = []domain.Reply{}
	}
	if doc.Categories == nil {
		doc.Categories = []domain.Category{}
	}
}

func recomputeStats(doc *domain.Document) {
	users := map[string]struct{}{}
	var maxPost, maxReply int64
	for _, p := range doc.Posts {
		if p.AuthorID != "" {
			users[p.AuthorID] = struct{}{}
		}
		maxPost = max(maxPost, p.ID)
	}
	for _, r := range doc.Replies {
		if r.AuthorID != "" {
			users[r.AuthorID] = struct{}{}
		}
		maxReply = max(maxReply, r.ID)
	}

	doc.Stats.TotalPosts = len(doc.Posts)
	doc.Stats.TotalReplies = len(doc.Replies)
	doc.Stats.TotalUsers = len(users)
	doc.Stats.LastPostID = max(doc.Stats.LastPostID, maxPost)
	doc.Stats.LastReplyID = max(doc.Stats.LastReplyID, maxReply)
}

func nextPostID(doc *domain.Document) int64 {
	next := doc.Stats.LastPostID
	for _, p := range doc.Posts {
		next = max(next, p.ID)
	}
	return next + 1
}

func nextReplyID(doc *domain.Document) int64 {
	next := doc.Stats.LastReplyID
	for _, r := range doc.Replies {
		next = max(next, r.ID)
	}
	return next + 1
}

func findPost(doc *domain.Document, id int64) int {
	for i := range doc.Posts {
		if doc.Posts[i].ID == id {
			return i
		}
	}
	return -1
}

func findCategory(doc *domain.Document, name string) int {
	for i := range doc.Categories {
		if doc.Categories[i].Name == name {
			return i
		}
	}
	return -1
}

func adjustCategory(doc *domain.Document, name string, delta int) {
	idx := findCategory(doc, name)
	if idx < 0 {
		return
	}
	doc.Categories[idx].Count = max(0, doc.Categories[idx].Count+delta)
}

// toggle flips membership of user in set and returns the new set.
func toggle(set []string, user string) ([]string, bool) {
	for i, member := range set {
		if member == user {
			return append(set[:i:i], set[i+1:]...), false
		}
	}
	return append(set, user), true
}

func normalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, tag := range tags {
		if tag == "" {
			continue
		}
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
	}
	return out
}
