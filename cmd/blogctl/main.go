// Command blogctl is a small terminal client for the blog server. It
// keeps its session in a local bbolt file, so a login survives across
// invocations until it expires or is rejected.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.etcd.io/bbolt"

	"github.com/jrsteele09/go-blog-server/client/api"
	"github.com/jrsteele09/go-blog-server/client/feed"
	"github.com/jrsteele09/go-blog-server/client/session"
	"github.com/jrsteele09/go-blog-server/internal/config"
)

const usage = `usage: blogctl [-server URL] <command> [args]

commands:
  signup <username> <password>   create an account and log in
  login <username> <password>    log in
  logout                         discard the local session
  whoami                         show the current session
  posts                          list posts
  like <post-id>                 toggle a like
  comments <post-id>             list a post's comments
  comment <post-id> <text>       add a comment
`

func main() {
	serverURL := flag.String("server", envOr("BLOG_SERVER_URL", "http://localhost:8080"), "blog server base URL")
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	if err := dispatch(*serverURL, args[0], args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "blogctl: %v\n", err)
		os.Exit(1)
	}
}

func dispatch(serverURL, command string, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	manager, client, closeStore, err := buildClient(serverURL)
	if err != nil {
		return err
	}
	defer closeStore()

	if command != "login" && command != "signup" {
		// Adopt a persisted session; privileged commands then wait for
		// the server's verdict before acting on it.
		<-manager.Bootstrap(ctx)

		// Keep a confirmed session fresh. The manager debounces, so
		// rapid invocations don't hammer the refresh endpoint.
		if _, state := manager.Current(); state == session.StateActive {
			if err := manager.Refresh(ctx); err != nil {
				fmt.Fprintf(os.Stderr, "blogctl: token refresh failed: %v\n", err)
			}
		}
	}

	switch command {
	case "signup":
		if len(args) != 2 {
			return fmt.Errorf("signup needs <username> <password>")
		}
		if err := manager.SignUp(ctx, args[0], args[1]); err != nil {
			return err
		}
		return printWhoami(manager)
	case "login":
		if len(args) != 2 {
			return fmt.Errorf("login needs <username> <password>")
		}
		if err := manager.Login(ctx, args[0], args[1]); err != nil {
			return err
		}
		return printWhoami(manager)
	case "logout":
		if err := manager.Logout(); err != nil {
			return err
		}
		fmt.Println("logged out")
		return nil
	case "whoami":
		return printWhoami(manager)
	case "posts":
		return listPosts(ctx, client)
	case "like":
		if len(args) != 1 {
			return fmt.Errorf("like needs <post-id>")
		}
		return toggleLike(ctx, client, args[0])
	case "comments":
		if len(args) != 1 {
			return fmt.Errorf("comments needs <post-id>")
		}
		return listComments(ctx, client, args[0])
	case "comment":
		if len(args) < 2 {
			return fmt.Errorf("comment needs <post-id> <text>")
		}
		return addComment(ctx, client, manager, args[0], strings.Join(args[1:], " "))
	default:
		fmt.Fprint(os.Stderr, usage)
		return fmt.Errorf("unknown command %q", command)
	}
}

func buildClient(serverURL string) (*session.Manager, *api.Client, func(), error) {
	dir, err := sessionDir()
	if err != nil {
		return nil, nil, nil, err
	}
	db, err := bbolt.Open(filepath.Join(dir, "session.db"), 0o600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, nil, nil, fmt.Errorf("open session store: %w", err)
	}
	closeStore := func() { _ = db.Close() }

	store, err := session.NewBoltStore(db)
	if err != nil {
		closeStore()
		return nil, nil, nil, err
	}

	// The client and manager reference each other: the client reads its
	// token from the manager, the manager hears about rejections from
	// the client.
	var manager *session.Manager
	client := api.NewClient(serverURL,
		api.WithTokenSource(func() string { return manager.Token() }),
		api.WithRejectionHandler(func() { manager.OnCredentialRejected() }),
	)
	cfg := config.New()
	manager, err = session.NewManager(client, store,
		session.WithRefreshDebounce(cfg.GetRefreshDebounce()),
	)
	if err != nil {
		closeStore()
		return nil, nil, nil, err
	}
	return manager, client, closeStore, nil
}

func sessionDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	dir := filepath.Join(home, ".blogctl")
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("create %s: %w", dir, err)
	}
	return dir, nil
}

func printWhoami(manager *session.Manager) error {
	user, state := manager.Current()
	if state != session.StateActive {
		fmt.Println("not logged in")
		return nil
	}
	fmt.Printf("%s (%s)\n", user.Username, user.Role)
	return nil
}

func listPosts(ctx context.Context, client *api.Client) error {
	posts, err := feedFor(ctx, client)
	if err != nil {
		return err
	}
	for _, view := range posts.Posts() {
		marker := " "
		if view.LikedByMe {
			marker = "*"
		}
		fmt.Printf("%s %s  %s  [%d likes, %d comments]\n", marker, view.ID, view.Title, view.LikeCount, view.CommentCount)
	}
	return nil
}

func toggleLike(ctx context.Context, client *api.Client, postID string) error {
	posts, err := feedFor(ctx, client)
	if err != nil {
		return err
	}
	if err := posts.ToggleLike(ctx, postID); err != nil {
		return err
	}
	view, _ := posts.Post(postID)
	if view.LikedByMe {
		fmt.Printf("liked (%d likes)\n", view.LikeCount)
	} else {
		fmt.Printf("unliked (%d likes)\n", view.LikeCount)
	}
	return nil
}

func listComments(ctx context.Context, client *api.Client, postID string) error {
	posts, err := feedFor(ctx, client)
	if err != nil {
		return err
	}
	if err := posts.LoadComments(ctx, postID); err != nil {
		return err
	}
	for _, comment := range posts.Comments(postID) {
		fmt.Printf("%s: %s\n", comment.Username, comment.Text)
	}
	return nil
}

func addComment(ctx context.Context, client *api.Client, manager *session.Manager, postID, text string) error {
	user, state := manager.Current()
	if state != session.StateActive {
		return fmt.Errorf("log in first")
	}
	posts, err := feedFor(ctx, client)
	if err != nil {
		return err
	}
	if err := posts.AddComment(ctx, postID, text, user.Username); err != nil {
		return err
	}
	fmt.Println("comment added")
	return nil
}

func feedFor(ctx context.Context, client *api.Client) (*feed.Feed, error) {
	posts, err := feed.New(client)
	if err != nil {
		return nil, err
	}
	if err := posts.Load(ctx); err != nil {
		return nil, err
	}
	return posts, nil
}

func envOr(envVar, defaultValue string) string {
	if value := os.Getenv(envVar); value != "" {
		return value
	}
	return defaultValue
}
