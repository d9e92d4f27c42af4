// A terminal client for a distributed social network node.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"github.com/samber/lo"

	"github.com/tkrehbiel/distrolace/client"
	"github.com/tkrehbiel/distrolace/client/api"
	"github.com/tkrehbiel/distrolace/client/feed"
	"github.com/tkrehbiel/distrolace/client/telemetry"
)

var (
	heading = color.New(color.FgCyan, color.Bold)
	failure = color.New(color.FgRed)
	notice  = color.New(color.FgGreen)
)

type command struct {
	usage string
	min   int
	run   func(ctx context.Context, svc *client.Service, args []string) error
}

var commands = map[string]command{
	"login":    {"login <username> <password>", 2, login},
	"logout":   {"logout", 0, logout},
	"signup":   {"signup <username> <password> <display name>", 3, signup},
	"stream":   {"stream [page]", 0, stream},
	"public":   {"public", 0, public},
	"post":     {"post <post id>", 1, showPost},
	"create":   {"create [-markdown] [-visibility V] [-description D] <title> <text>", 2, createPost},
	"edit":     {"edit [-title T] [-content C] [-markdown] [-visibility V] <post id>", 1, editPost},
	"share":    {"share <post id>", 1, share},
	"like":     {"like <post id>", 1, like},
	"comment":  {"comment <post id> <text>", 2, comment},
	"delete":   {"delete <post id>", 1, deletePost},
	"profile":  {"profile <author id>", 1, showProfile},
	"follow":   {"follow <author id>", 1, follow},
	"unfollow": {"unfollow <author id>", 1, unfollow},
	"requests": {"requests", 0, requests},
	"accept":   {"accept <author id>", 1, accept},
	"reject":   {"reject <author id>", 1, reject},
	"search":   {"search <keyword>", 1, search},
	"nodes":    {"nodes", 0, nodes},
	"watch":    {"watch", 0, watch},

	"edit-profile": {"edit-profile [-name N] [-github URL] [-image URL]", 0, editProfile},
}

func readConfig(filename string) client.Config {
	if _, err := os.Stat(filename); errors.Is(err, os.ErrNotExist) {
		telemetry.Trace("no config [%s], using defaults", filename)
		return client.DefaultConfig()
	}
	cfg, err := client.LoadConfig(filename)
	if err != nil {
		telemetry.Error(err, "parsing config [%s]", filename)
		return client.DefaultConfig()
	}
	return cfg
}

func usage() {
	heading.Fprintln(os.Stderr, "distrolace")
	fmt.Fprintln(os.Stderr, "usage: distrolace [flags] <command> [args]")
	flag.PrintDefaults()
	fmt.Fprintln(os.Stderr, "commands:")
	for _, name := range sortedCommands() {
		fmt.Fprintf(os.Stderr, "  %s\n", commands[name].usage)
	}
}

func sortedCommands() []string {
	names := lo.Keys(commands)
	sort.Strings(names)
	return names
}

func main() {
	configFile := flag.String("config", "config.json", "config file (json, yaml or toml)")
	nodeURL := flag.String("url", "", "home node url")
	dbFile := flag.String("db", "", "local database file")
	trace := flag.Bool("trace", false, "trace logging")
	quiet := flag.Bool("quiet", false, "no log output")
	flag.Usage = usage
	flag.Parse()

	if *quiet {
		telemetry.SetOutput(io.Discard)
	} else {
		telemetry.SetOutput(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.DateTime})
	}

	args := flag.Args()
	if len(args) == 0 {
		usage()
		os.Exit(2)
	}
	cmd, ok := commands[args[0]]
	if !ok || len(args)-1 < cmd.min {
		usage()
		os.Exit(2)
	}

	cfg := readConfig(*configFile)
	if *nodeURL != "" {
		cfg.URL = *nodeURL
	}
	if *dbFile != "" {
		cfg.Database = *dbFile
	}
	if *trace {
		cfg.Trace = true
	}

	svc, err := client.NewService(cfg)
	if err != nil {
		failure.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err = cmd.run(ctx, svc, args[1:])
	stop()
	svc.Close()
	if err != nil {
		msgs := api.Messages(err)
		if len(msgs) == 0 {
			msgs = []string{err.Error()}
		}
		for _, msg := range msgs {
			failure.Fprintln(os.Stderr, msg)
		}
		if api.IsAuthError(err) {
			failure.Fprintln(os.Stderr, "log in with: distrolace login <username> <password>")
		}
		os.Exit(1)
	}
}

// visit navigates to path and refuses protected views without a session
func visit(svc *client.Service, path string) error {
	res, err := svc.Router.Navigate(path)
	if err != nil {
		return err
	}
	if res.Redirect != "" {
		return fmt.Errorf("%w: %s requires login", api.ErrUnauthenticated, path)
	}
	return nil
}

func login(ctx context.Context, svc *client.Service, args []string) error {
	ctx, cancel := svc.Context(ctx)
	defer cancel()
	if err := svc.Login(ctx, args[0], args[1]); err != nil {
		return err
	}
	notice.Printf("logged in as %s\n", svc.Session.CurrentAuthorID())
	return nil
}

func logout(ctx context.Context, svc *client.Service, _ []string) error {
	ctx, cancel := svc.Context(ctx)
	defer cancel()
	if err := svc.Logout(ctx); err != nil {
		return err
	}
	notice.Println("logged out")
	return nil
}

func signup(ctx context.Context, svc *client.Service, args []string) error {
	ctx, cancel := svc.Context(ctx)
	defer cancel()
	form := api.SignupForm{Username: args[0], Password: args[1], DisplayName: strings.Join(args[2:], " ")}
	if err := svc.Signup(ctx, form); err != nil {
		return err
	}
	if svc.Session.Authenticated() {
		notice.Printf("signed up and logged in as %s\n", svc.Session.CurrentAuthorID())
	} else {
		notice.Println("signed up, waiting for approval")
	}
	return nil
}

func printPosts(svc *client.Service, posts []feed.PostView) error {
	if len(posts) == 0 {
		fmt.Println("nothing to show")
		return nil
	}
	for _, p := range posts {
		if err := svc.Render(os.Stdout, "post", p); err != nil {
			return err
		}
		fmt.Println()
	}
	return nil
}

func stream(ctx context.Context, svc *client.Service, args []string) error {
	if err := visit(svc, "/"); err != nil {
		return err
	}
	page := 1
	if len(args) > 0 {
		n, err := strconv.Atoi(args[0])
		if err != nil || n < 1 {
			return fmt.Errorf("%w: page must be a positive number", api.ErrValidation)
		}
		page = n
	}
	ctx, cancel := svc.Context(ctx)
	defer cancel()
	if err := svc.Feed.Load(ctx, feed.Stream(svc.Session.CurrentAuthorID(), page)); err != nil {
		return err
	}
	heading.Printf("stream, page %d of %s posts\n\n", page, feed.FormatCount(svc.Feed.Total()))
	return printPosts(svc, svc.Feed.Posts())
}

func public(ctx context.Context, svc *client.Service, _ []string) error {
	if err := visit(svc, "/public"); err != nil {
		return err
	}
	ctx, cancel := svc.Context(ctx)
	defer cancel()
	if err := svc.Feed.Load(ctx, feed.Public()); err != nil {
		return err
	}
	heading.Print("public posts\n\n")
	return printPosts(svc, svc.Feed.Posts())
}

// loadPost shows a single post in the feed so it can be acted on
func loadPost(ctx context.Context, svc *client.Service, postID string) error {
	if err := visit(svc, "/posts/"+pathID(postID)); err != nil {
		return err
	}
	return svc.Feed.Load(ctx, feed.Single(postID))
}

// loadLivePost is loadPost plus the backend's current like state
func loadLivePost(ctx context.Context, svc *client.Service, postID string) error {
	if err := loadPost(ctx, svc, postID); err != nil {
		return err
	}
	if err := svc.Feed.SyncLiked(ctx, postID); err != nil {
		telemetry.Error(err, "checking likes of %s", postID)
	}
	return nil
}

// flags parses per-command flags; at least need args must remain
func flags(name string, args []string, need int, define func(fs *flag.FlagSet)) ([]string, error) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	define(fs)
	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", api.ErrValidation, name, err)
	}
	if fs.NArg() < need {
		return nil, fmt.Errorf("%w: %s needs %d arguments after its flags", api.ErrValidation, name, need)
	}
	return fs.Args(), nil
}

func contentType(markdown bool) string {
	if markdown {
		return api.ContentTypeMarkdown
	}
	return api.ContentTypePlain
}

func pathID(id string) string {
	return strings.ReplaceAll(id, "/", "%2F")
}

func renderPost(svc *client.Service, postID string) error {
	view, ok := svc.Feed.Post(postID)
	if !ok {
		return fmt.Errorf("%w: %s", feed.ErrUnknownPost, postID)
	}
	return svc.Render(os.Stdout, "post", view)
}

func showPost(ctx context.Context, svc *client.Service, args []string) error {
	ctx, cancel := svc.Context(ctx)
	defer cancel()
	if err := loadLivePost(ctx, svc, args[0]); err != nil {
		return err
	}
	if _, err := svc.Feed.LoadComments(ctx, args[0], 1); err != nil {
		telemetry.Error(err, "loading comments for %s", args[0])
	}
	return renderPost(svc, args[0])
}

func like(ctx context.Context, svc *client.Service, args []string) error {
	ctx, cancel := svc.Context(ctx)
	defer cancel()
	if err := loadLivePost(ctx, svc, args[0]); err != nil {
		return err
	}
	if err := svc.Feed.ToggleLike(ctx, args[0]); err != nil {
		return err
	}
	return renderPost(svc, args[0])
}

func createPost(ctx context.Context, svc *client.Service, args []string) error {
	var markdown bool
	var visibility, description string
	rest, err := flags("create", args, 2, func(fs *flag.FlagSet) {
		fs.BoolVar(&markdown, "markdown", false, "content is markdown")
		fs.StringVar(&visibility, "visibility", string(api.VisibilityPublic), "PUBLIC, FRIENDS or UNLISTED")
		fs.StringVar(&description, "description", "", "short description")
	})
	if err != nil {
		return err
	}
	if err := visit(svc, "/"); err != nil {
		return err
	}
	draft := feed.NewDraft(rest[0], strings.Join(rest[1:], " "))
	draft.ContentType = contentType(markdown)
	draft.Visibility = api.Visibility(strings.ToUpper(visibility))
	draft.Description = description

	ctx, cancel := svc.Context(ctx)
	defer cancel()
	view, err := svc.Feed.Create(ctx, draft)
	if err != nil {
		return err
	}
	notice.Printf("created %s\n", view.Post.ID)
	return svc.Render(os.Stdout, "post", view)
}

func editPost(ctx context.Context, svc *client.Service, args []string) error {
	var markdown bool
	var title, content, visibility string
	rest, err := flags("edit", args, 1, func(fs *flag.FlagSet) {
		fs.StringVar(&title, "title", "", "new title")
		fs.StringVar(&content, "content", "", "new content")
		fs.BoolVar(&markdown, "markdown", false, "new content is markdown")
		fs.StringVar(&visibility, "visibility", "", "PUBLIC, FRIENDS or UNLISTED")
	})
	if err != nil {
		return err
	}
	postID := rest[0]

	ctx, cancel := svc.Context(ctx)
	defer cancel()
	if err := loadPost(ctx, svc, postID); err != nil {
		return err
	}
	draft, err := svc.Feed.Edit(postID)
	if err != nil {
		return err
	}
	if title != "" {
		draft.Title = title
	}
	if content != "" {
		draft.Content = content
		draft.ContentType = contentType(markdown)
	}
	if visibility != "" {
		draft.Visibility = api.Visibility(strings.ToUpper(visibility))
	}
	if err := svc.Feed.UpdateDraft(postID, draft); err != nil {
		return err
	}
	if err := svc.Feed.Save(ctx, postID); err != nil {
		return err
	}
	notice.Printf("saved %s\n", postID)
	return renderPost(svc, postID)
}

func share(ctx context.Context, svc *client.Service, args []string) error {
	ctx, cancel := svc.Context(ctx)
	defer cancel()
	if err := loadPost(ctx, svc, args[0]); err != nil {
		return err
	}
	view, err := svc.Feed.Share(ctx, args[0])
	if err != nil {
		return err
	}
	notice.Printf("shared %s as %s\n", args[0], view.Post.ID)
	return svc.Render(os.Stdout, "post", view)
}

func comment(ctx context.Context, svc *client.Service, args []string) error {
	ctx, cancel := svc.Context(ctx)
	defer cancel()
	if err := loadPost(ctx, svc, args[0]); err != nil {
		return err
	}
	if _, err := svc.Feed.AddComment(ctx, args[0], strings.Join(args[1:], " ")); err != nil {
		return err
	}
	return renderPost(svc, args[0])
}

func deletePost(ctx context.Context, svc *client.Service, args []string) error {
	ctx, cancel := svc.Context(ctx)
	defer cancel()
	if err := loadPost(ctx, svc, args[0]); err != nil {
		return err
	}
	if err := svc.Feed.Delete(ctx, args[0]); err != nil {
		return err
	}
	notice.Printf("deleted %s\n", args[0])
	return nil
}

func showProfile(ctx context.Context, svc *client.Service, args []string) error {
	if err := visit(svc, "/authors/"+pathID(args[0])); err != nil {
		return err
	}
	ctx, cancel := svc.Context(ctx)
	defer cancel()
	p, err := svc.Profiles.Load(ctx, args[0])
	if err != nil {
		return err
	}
	if err := svc.Render(os.Stdout, "profile", p); err != nil {
		return err
	}
	fmt.Println()
	return printPosts(svc, p.Posts)
}

func editProfile(ctx context.Context, svc *client.Service, args []string) error {
	var form api.ProfileForm
	if _, err := flags("edit-profile", args, 0, func(fs *flag.FlagSet) {
		fs.StringVar(&form.DisplayName, "name", "", "display name")
		fs.StringVar(&form.Github, "github", "", "github url")
		fs.StringVar(&form.ProfileImage, "image", "", "profile image url")
	}); err != nil {
		return err
	}
	if err := visit(svc, "/profile/edit"); err != nil {
		return err
	}
	ctx, cancel := svc.Context(ctx)
	defer cancel()
	p, err := svc.Profiles.Load(ctx, svc.Session.CurrentAuthorID())
	if err != nil {
		return err
	}
	if err := svc.Profiles.UpdateProfile(ctx, p, form); err != nil {
		return err
	}
	return svc.Render(os.Stdout, "profile", p)
}

func changeFollow(ctx context.Context, svc *client.Service, authorID string, follow bool) error {
	if err := visit(svc, "/authors/"+pathID(authorID)); err != nil {
		return err
	}
	ctx, cancel := svc.Context(ctx)
	defer cancel()
	p, err := svc.Profiles.Load(ctx, authorID)
	if err != nil {
		return err
	}
	if follow {
		err = svc.Profiles.Follow(ctx, p)
	} else {
		err = svc.Profiles.Unfollow(ctx, p)
	}
	if err != nil {
		return err
	}
	notice.Printf("relationship with %s is now %s\n", authorID, p.Relationship)
	return nil
}

func follow(ctx context.Context, svc *client.Service, args []string) error {
	return changeFollow(ctx, svc, args[0], true)
}

func unfollow(ctx context.Context, svc *client.Service, args []string) error {
	return changeFollow(ctx, svc, args[0], false)
}

func requests(ctx context.Context, svc *client.Service, _ []string) error {
	if err := visit(svc, "/notifications"); err != nil {
		return err
	}
	ctx, cancel := svc.Context(ctx)
	defer cancel()
	pending, err := svc.Relationships.PendingRequests(ctx)
	if err != nil {
		return err
	}
	return svc.Render(os.Stdout, "requests", pending)
}

func accept(ctx context.Context, svc *client.Service, args []string) error {
	if err := visit(svc, "/notifications"); err != nil {
		return err
	}
	ctx, cancel := svc.Context(ctx)
	defer cancel()
	if err := svc.Relationships.AcceptFollowRequest(ctx, svc.Session.CurrentAuthorID(), args[0]); err != nil {
		return err
	}
	notice.Printf("%s now follows you\n", args[0])
	return nil
}

func reject(ctx context.Context, svc *client.Service, args []string) error {
	if err := visit(svc, "/notifications"); err != nil {
		return err
	}
	ctx, cancel := svc.Context(ctx)
	defer cancel()
	if err := svc.Relationships.RejectFollowRequest(ctx, svc.Session.CurrentAuthorID(), args[0]); err != nil {
		return err
	}
	notice.Printf("rejected %s\n", args[0])
	return nil
}

func search(ctx context.Context, svc *client.Service, args []string) error {
	if err := visit(svc, "/search"); err != nil {
		return err
	}
	ctx, cancel := svc.Context(ctx)
	defer cancel()
	found, err := svc.Directory.Search(ctx, strings.Join(args, " "))
	if err != nil {
		return err
	}
	return svc.Render(os.Stdout, "authors", found)
}

func nodes(_ context.Context, svc *client.Service, _ []string) error {
	list, err := svc.Nodes.Nodes()
	if err != nil {
		return err
	}
	if len(list) == 0 {
		fmt.Println("no remote nodes registered")
	}
	for _, n := range list {
		auth := "none"
		switch {
		case n.KeyID != "":
			auth = "signature " + n.KeyID
		case n.Username != "":
			auth = "basic " + n.Username
		}
		fmt.Printf("%s  %s\n", n.Host, auth)
	}
	return nil
}

// watch crossposts the configured feed on a cron schedule until interrupted
func watch(ctx context.Context, svc *client.Service, _ []string) error {
	cfg := svc.Config.Syndication
	if cfg.Feed == "" {
		return fmt.Errorf("%w: no syndication feed configured", api.ErrValidation)
	}
	if !svc.Session.Authenticated() {
		return fmt.Errorf("%w: crossposting requires login", api.ErrUnauthenticated)
	}
	w, err := svc.Crossposter().Watcher(cfg.Feed)
	if err != nil {
		return err
	}
	check := func() {
		ctx, cancel := svc.Context(ctx)
		defer cancel()
		if err := w.Check(ctx); err != nil {
			telemetry.Error(err, "checking %s", cfg.Feed)
		}
	}

	scheduler := cron.New()
	if _, err := scheduler.AddFunc(cfg.Schedule, check); err != nil {
		return fmt.Errorf("%w: schedule %q: %v", api.ErrValidation, cfg.Schedule, err)
	}
	telemetry.Log("watching %s on schedule %s", cfg.Feed, cfg.Schedule)
	check()
	scheduler.Start()
	<-ctx.Done()
	<-scheduler.Stop().Done()
	telemetry.Log("stopped watching %s", cfg.Feed)
	return nil
}
