// Package ai generates draft blog posts from images via the Gemini API.
// The rest of the system sees only the Generator interface; Gemini failures
// surface as upstream errors, never as authentication or validation ones.
package ai

import (
	"context"

	"github.com/jrsteele09/go-blog-server/posts"
)

// Draft is a generated post title and body.
type Draft struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

// Generator produces a post draft from an image.
type Generator interface {
	// GeneratePost generates a draft for the image (a data URL) in the
	// requested language.
	GeneratePost(ctx context.Context, image string, language posts.Language) (*Draft, error)
}
