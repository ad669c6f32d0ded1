package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/jrsteele09/go-blog-server/posts"
)

type createPostRequest struct {
	Title    string `json:"title"`
	Content  string `json:"content"`
	Date     string `json:"date"`
	Image    string `json:"image,omitempty"`
	Language string `json:"language"`
}

type commentRequest struct {
	Text string `json:"text"`
}

type generateRequest struct {
	Image    string `json:"image"`
	Language string `json:"language"`
}

// ListPostsHandler returns all posts, newest first. Authentication is
// optional: a valid credential personalises likedByMe, anything else is
// treated as an anonymous request rather than rejected.
func (s *Server) ListPostsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		viewerID := ""
		if claim, ok := s.optionalClaim(r); ok {
			viewerID = claim.SubjectID
		}

		list, err := s.posts.List()
		if err != nil {
			s.writePostError(w, err)
			return
		}

		views := make([]posts.View, 0, len(list))
		for _, post := range list {
			count, err := s.posts.CommentCount(post.ID)
			if err != nil {
				s.writePostError(w, err)
				return
			}
			views = append(views, post.ViewFor(viewerID, count))
		}
		writeJSON(w, http.StatusOK, views)
	}
}

// CreatePostHandler creates a post. Elevated role enforced by middleware.
func (s *Server) CreatePostHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createPostRequest
		if err := decodeJSONBody(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid JSON body")
			return
		}

		if req.Title == "" || req.Content == "" || req.Date == "" || req.Language == "" {
			writeError(w, http.StatusBadRequest, "Missing required fields: title, content, date, language")
			return
		}
		if !posts.ValidLanguage(req.Language) {
			writeError(w, http.StatusBadRequest, `language must be "en" or "cs"`)
			return
		}

		post := &posts.Post{
			Title:     strings.TrimSpace(req.Title),
			Content:   strings.TrimSpace(req.Content),
			Date:      strings.TrimSpace(req.Date),
			Image:     req.Image,
			Language:  posts.Language(req.Language),
			CreatedAt: time.Now(),
		}
		if err := s.posts.Create(post); err != nil {
			s.writePostError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, post.ViewFor("", 0))
	}
}

func (s *Server) GetPostHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		post, err := s.posts.Get(r.PathValue("id"))
		if err != nil {
			s.writePostError(w, err)
			return
		}

		viewerID := ""
		if claim, ok := s.optionalClaim(r); ok {
			viewerID = claim.SubjectID
		}
		count, err := s.posts.CommentCount(post.ID)
		if err != nil {
			s.writePostError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, post.ViewFor(viewerID, count))
	}
}

func (s *Server) DeletePostHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := s.posts.Delete(r.PathValue("id")); err != nil {
			s.writePostError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
	}
}

// ToggleLikeHandler flips the caller's like on a post and returns the
// authoritative result clients reconcile against.
func (s *Server) ToggleLikeHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claim, ok := ClaimFromContext(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "Authentication required")
			return
		}

		result, err := s.posts.ToggleLike(r.PathValue("id"), claim.SubjectID)
		if err != nil {
			s.writePostError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, result)
	}
}

func (s *Server) ListCommentsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		comments, err := s.posts.Comments(r.PathValue("id"))
		if err != nil {
			s.writePostError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, comments)
	}
}

func (s *Server) AddCommentHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claim, ok := ClaimFromContext(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "Authentication required")
			return
		}

		var req commentRequest
		if err := decodeJSONBody(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid JSON body")
			return
		}
		text := strings.TrimSpace(req.Text)
		if text == "" {
			writeError(w, http.StatusBadRequest, "Comment text is required")
			return
		}

		comment := &posts.Comment{
			PostID:    r.PathValue("id"),
			UserID:    claim.SubjectID,
			Username:  claim.Username,
			Text:      text,
			CreatedAt: time.Now(),
		}
		if err := s.posts.AddComment(comment); err != nil {
			s.writePostError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, comment)
	}
}

// GeneratePostHandler asks the AI generator for a draft post from an image.
func (s *Server) GeneratePostHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.generator == nil {
			writeError(w, http.StatusInternalServerError, "AI generation is not configured")
			return
		}

		var req generateRequest
		if err := decodeJSONBody(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid JSON body")
			return
		}
		if req.Image == "" {
			writeError(w, http.StatusBadRequest, "Image (base64 data URL) is required")
			return
		}
		language := posts.LanguageEnglish
		if req.Language == string(posts.LanguageCzech) {
			language = posts.LanguageCzech
		}

		draft, err := s.generator.GeneratePost(r.Context(), req.Image, language)
		if err != nil {
			s.writeCategorisedError(w, err, "")
			return
		}
		writeJSON(w, http.StatusOK, draft)
	}
}

func (s *Server) writePostError(w http.ResponseWriter, err error) {
	if errors.Is(err, posts.ErrPostNotFound) {
		writeError(w, http.StatusNotFound, "Post not found")
		return
	}
	s.logger.Error().Err(err).Msg("post request failed")
	writeError(w, http.StatusInternalServerError, "Internal server error")
}
