package posts

import "time"

// Language is the authoring language of a post.
type Language string

const (
	LanguageEnglish Language = "en"
	LanguageCzech   Language = "cs"
)

// ValidLanguage reports whether s is a supported post language.
func ValidLanguage(s string) bool {
	return s == string(LanguageEnglish) || s == string(LanguageCzech)
}

// Post is a stored blog post. LikedBy is the set of user IDs that currently
// like the post; it is mutated only through Repo.ToggleLike so the toggle
// stays a single-record atomic update.
type Post struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	Date      string    `json:"date"`
	Image     string    `json:"image,omitempty"`
	Language  Language  `json:"language"`
	LikedBy   []string  `json:"likedBy,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// Comment is a stored comment on a post.
type Comment struct {
	ID        string    `json:"id"`
	PostID    string    `json:"postId"`
	UserID    string    `json:"userId"`
	Username  string    `json:"username"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"createdAt"`
}

// LikeResult is the authoritative state of a post's like record after a
// toggle. Clients replace their optimistic state with it verbatim.
type LikeResult struct {
	Liked     bool `json:"liked"`
	LikeCount int  `json:"likeCount"`
}

// View is the serialized form of a post as returned by the API, with
// like/comment state resolved for a particular viewer.
type View struct {
	ID           string   `json:"id"`
	Title        string   `json:"title"`
	Content      string   `json:"content"`
	Date         string   `json:"date"`
	Image        string   `json:"image,omitempty"`
	Language     Language `json:"language"`
	LikeCount    int      `json:"likeCount"`
	LikedByMe    bool     `json:"likedByMe"`
	CommentCount int      `json:"commentCount"`
}

// ViewFor resolves the post's like state for the given viewer. An empty
// viewerID means an anonymous request: LikedByMe is always false.
func (p *Post) ViewFor(viewerID string, commentCount int) View {
	likedByMe := false
	if viewerID != "" {
		for _, id := range p.LikedBy {
			if id == viewerID {
				likedByMe = true
				break
			}
		}
	}
	return View{
		ID:           p.ID,
		Title:        p.Title,
		Content:      p.Content,
		Date:         p.Date,
		Image:        p.Image,
		Language:     p.Language,
		LikeCount:    len(p.LikedBy),
		LikedByMe:    likedByMe,
		CommentCount: commentCount,
	}
}
