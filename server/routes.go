package server

func (s *Server) initRoutes() {
	// Auth
	s.RegisterRouteHandler("POST "+RouteAuthRegister, ChainMiddleware(s.RegisterHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("POST "+RouteAuthLogin, ChainMiddleware(s.LoginHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("GET "+RouteAuthMe, ChainMiddleware(s.MeHandler(), s.APIMiddleware(s.RequireAuth())...))
	s.RegisterRouteHandler("POST "+RouteAuthRefresh, ChainMiddleware(s.RefreshHandler(), s.APIMiddleware()...))

	// Posts
	s.RegisterRouteHandler("GET "+RoutePosts, ChainMiddleware(s.ListPostsHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("POST "+RoutePosts, ChainMiddleware(s.CreatePostHandler(), s.APIMiddleware(s.RequireAuth(), s.RequireElevated())...))
	s.RegisterRouteHandler("GET "+RoutePost, ChainMiddleware(s.GetPostHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("DELETE "+RoutePost, ChainMiddleware(s.DeletePostHandler(), s.APIMiddleware(s.RequireAuth(), s.RequireElevated())...))

	// Interactions
	s.RegisterRouteHandler("POST "+RoutePostLike, ChainMiddleware(s.ToggleLikeHandler(), s.APIMiddleware(s.RequireAuth())...))
	s.RegisterRouteHandler("GET "+RoutePostComments, ChainMiddleware(s.ListCommentsHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("POST "+RoutePostComments, ChainMiddleware(s.AddCommentHandler(), s.APIMiddleware(s.RequireAuth())...))

	// AI
	s.RegisterRouteHandler("POST "+RouteAIGeneratePost, ChainMiddleware(s.GeneratePostHandler(), s.APIMiddleware(s.RequireAuth(), s.RequireElevated())...))
}
