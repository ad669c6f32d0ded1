package server

// Route path constants
// All application routes are defined here to ensure consistency and prevent typos
const (
	// Auth Routes
	RouteAuthRegister = "/api/auth/register"
	RouteAuthLogin    = "/api/auth/login"
	RouteAuthMe       = "/api/auth/me"
	RouteAuthRefresh  = "/api/auth/refresh"

	// Post Routes
	RoutePosts        = "/api/posts"
	RoutePost         = "/api/posts/{id}"
	RoutePostLike     = "/api/posts/{id}/like"
	RoutePostComments = "/api/posts/{id}/comments"

	// AI Routes
	RouteAIGeneratePost = "/api/ai/generate-post"
)
