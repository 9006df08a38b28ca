// Package main provides feedctl, a command line client for channel feeds.
// It drives the same optimistic cache the web client uses.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/lllypuk/threadline/internal/application/appcore"
	messageapp "github.com/lllypuk/threadline/internal/application/message"
	"github.com/lllypuk/threadline/internal/client/feedcache"
)

const tokenEnv = "THREADLINE_TOKEN"

type options struct {
	op        string
	baseURL   string
	workspace string
	token     string
	channel   string
	message   string
	content   string
	emoji     string
	name      string
	older     int
}

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	opts := parseFlags()
	if err := opts.validate(); err != nil {
		logger.Error("invalid arguments", slog.String("error", err.Error()))
		flag.Usage()
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	api := feedcache.NewAPIClient(feedcache.APIClientConfig{
		BaseURL:     opts.baseURL,
		WorkspaceID: opts.workspace,
		Token:       opts.token,
	})
	cache := feedcache.NewCache(feedcache.WithCacheLogger(logger))
	defer cache.Close()

	syncer := feedcache.NewSynchronizer(cache, api,
		appcore.Caller{Name: opts.name, WorkspaceID: opts.workspace},
		feedcache.WithNotifier(feedcache.NewLogNotifier(logger)),
		feedcache.WithSyncLogger(logger),
	)

	var err error
	switch opts.op {
	case "channels":
		err = runChannels(ctx, api)
	case "create-channel":
		err = runCreateChannel(ctx, api, opts.content)
	case "tail":
		err = runTail(ctx, syncer, opts, logger)
	case "post":
		_, err = syncer.SendMessage(ctx, opts.channel, opts.content, "")
	case "reply":
		_, err = syncer.SendReply(ctx, opts.channel, opts.message, opts.content, "")
	case "react":
		err = runReact(ctx, syncer, opts.message, opts.emoji)
	case "edit":
		_, err = syncer.EditMessage(ctx, opts.message, opts.content)
	case "thread":
		err = runThread(ctx, syncer, opts.message)
	}
	if err != nil {
		logger.ErrorContext(ctx, "command failed", slog.String("op", opts.op), slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func parseFlags() options {
	var opts options
	flag.StringVar(&opts.op, "op", "tail",
		"Operation: channels, create-channel, tail, post, reply, react, edit, thread")
	flag.StringVar(&opts.baseURL, "url", "http://localhost:8080", "Server base URL")
	flag.StringVar(&opts.workspace, "workspace", "", "Workspace ID")
	flag.StringVar(&opts.token, "token", os.Getenv(tokenEnv), "Bearer token (default $"+tokenEnv+")")
	flag.StringVar(&opts.channel, "channel", "", "Channel ID")
	flag.StringVar(&opts.message, "message", "", "Message ID (thread root for reply and thread)")
	flag.StringVar(&opts.content, "content", "", "Message content or channel name")
	flag.StringVar(&opts.emoji, "emoji", "👍", "Reaction emoji")
	flag.StringVar(&opts.name, "name", "", "Display name for pending messages")
	flag.IntVar(&opts.older, "older", 0, "Older pages to load before tailing")
	flag.Parse()
	return opts
}

func (o options) validate() error {
	if o.workspace == "" {
		return errors.New("workspace is required")
	}
	if o.token == "" {
		return errors.New("token is required")
	}

	switch o.op {
	case "channels":
		return nil
	case "create-channel":
		return requireFlags(map[string]string{"content": o.content})
	case "tail":
		return requireFlags(map[string]string{"channel": o.channel})
	case "post":
		return requireFlags(map[string]string{"channel": o.channel, "content": o.content})
	case "reply":
		return requireFlags(map[string]string{"channel": o.channel, "message": o.message, "content": o.content})
	case "react":
		return requireFlags(map[string]string{"message": o.message, "emoji": o.emoji})
	case "edit":
		return requireFlags(map[string]string{"message": o.message, "content": o.content})
	case "thread":
		return requireFlags(map[string]string{"message": o.message})
	default:
		return fmt.Errorf("unknown op %q", o.op)
	}
}

func requireFlags(values map[string]string) error {
	for name, value := range values {
		if value == "" {
			return fmt.Errorf("-%s is required", name)
		}
	}
	return nil
}

func runChannels(ctx context.Context, api *feedcache.APIClient) error {
	channels, err := api.ListChannels(ctx)
	if err != nil {
		return err
	}
	for _, ch := range channels {
		fmt.Printf("%s\t%s\n", ch.ID, ch.Name)
	}
	return nil
}

func runCreateChannel(ctx context.Context, api *feedcache.APIClient, name string) error {
	ch, err := api.CreateChannel(ctx, name)
	if err != nil {
		return err
	}
	fmt.Printf("%s\t%s\n", ch.ID, ch.Name)
	return nil
}

func runReact(ctx context.Context, syncer *feedcache.Synchronizer, messageID, emoji string) error {
	view, err := syncer.ToggleReaction(ctx, messageID, emoji)
	if err != nil {
		return err
	}
	for _, group := range view.Reactions {
		mark := ""
		if group.ReactedByMe {
			mark = " (you)"
		}
		fmt.Printf("%s %d%s\n", group.Emoji, group.Count, mark)
	}
	return nil
}

func runThread(ctx context.Context, syncer *feedcache.Synchronizer, messageID string) error {
	thread, err := syncer.LoadThread(ctx, messageID)
	if err != nil {
		return err
	}
	printMessage(thread.Parent)
	for _, reply := range thread.Messages {
		fmt.Print("    ")
		printMessage(reply)
	}
	return nil
}

// runTail prints the feed and reprints new messages as the server pushes changes.
func runTail(ctx context.Context, syncer *feedcache.Synchronizer, opts options, logger *slog.Logger) error {
	feed, err := syncer.LoadFeed(ctx, opts.channel)
	if err != nil {
		return err
	}
	for range opts.older {
		if feed.NextCursor() == "" {
			break
		}
		if feed, err = syncer.LoadOlder(ctx, opts.channel); err != nil {
			return err
		}
	}

	printed := make(map[string]bool)
	for _, item := range feed.Items() {
		printMessage(item)
		printed[item.ID] = true
	}

	changes := make(chan struct{}, 1)
	listener := feedcache.NewListener(syncer.Cache(), feedcache.ListenerConfig{
		BaseURL:     opts.baseURL,
		WorkspaceID: opts.workspace,
		Token:       opts.token,
	}, feedcache.WithListenerLogger(logger), feedcache.WithPushHandler(func(msg feedcache.PushMessage) {
		if msg.Type != feedcache.PushMessageNew || msg.ThreadID != "" {
			return
		}
		select {
		case changes <- struct{}{}:
		default:
		}
	}))

	errCh := make(chan error, 1)
	go func() { errCh <- listener.Run(ctx, opts.channel) }()

	for {
		select {
		case <-ctx.Done():
			return nil
		case runErr := <-errCh:
			return runErr
		case <-changes:
			feed, err = syncer.LoadFeed(ctx, opts.channel)
			if err != nil {
				logger.WarnContext(ctx, "refetch failed", slog.String("error", err.Error()))
				continue
			}
			for _, item := range feed.Items() {
				if !printed[item.ID] {
					printMessage(item)
					printed[item.ID] = true
				}
			}
		}
	}
}

func printMessage(m messageapp.MessageView) {
	replies := ""
	if m.ReplyCount > 0 {
		replies = fmt.Sprintf(" [%d replies]", m.ReplyCount)
	}
	fmt.Printf("%s  %s  %s: %s%s\n", m.CreatedAt.Format("2006-01-02 15:04"), m.ID, m.AuthorName, m.Content, replies)
}
