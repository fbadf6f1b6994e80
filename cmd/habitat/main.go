// Copyright 2026 The Habitat Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/pflag"

	"github.com/habitat-project/habitat/lib/config"
	"github.com/habitat-project/habitat/relay"
	"github.com/habitat-project/habitat/rooms"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	if len(os.Args) < 2 {
		printUsage()
		return fmt.Errorf("subcommand required")
	}

	subcommand := os.Args[1]
	args := os.Args[2:]
	switch subcommand {
	case "rooms":
		return runRooms(args)
	case "room":
		return runRoom(args)
	case "messages":
		return runMessages(args)
	case "watch":
		return runWatch(args)
	case "create-room":
		return runCreateRoom(args)
	case "update-room":
		return runUpdateRoom(args)
	case "send":
		return runSend(args)
	case "send-ephemeral":
		return runSendEphemeral(args)
	case "keygen":
		return runKeygen()
	case "-h", "--help", "help":
		printUsage()
		return nil
	default:
		printUsage()
		return fmt.Errorf("unknown subcommand: %q", subcommand)
	}
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `Usage: habitat <subcommand> [flags]

Subcommands:
  rooms           List all rooms, newest first
  room            Show one room by its composite ID (authorKey:slug)
  messages        List a room's messages (oldest first)
  watch           Follow a room's messages until interrupted
  create-room     Publish a new room
  update-room     Republish an existing room under its slug
  send            Send a chat message to a room
  send-ephemeral  Send a time-boxed message to a room
  keygen          Generate a signing keypair

Run 'habitat <subcommand> --help' for subcommand flags. All
subcommands read the config file named by --config or the
HABITAT_CONFIG environment variable.
`)
}

// client wires config, relay pool, repositories, and publisher for one
// command invocation.
type client struct {
	pool      *relay.Pool
	rooms     *rooms.RoomRepository
	messages  *rooms.MessageRepository
	publisher *rooms.Publisher
}

func (c *client) Close() { c.pool.Close() }

// commandFlags creates the flag set shared by every subcommand: the
// config path plus whatever the caller registers afterwards.
func commandFlags(name string) (*pflag.FlagSet, *string) {
	flags := pflag.NewFlagSet(name, pflag.ContinueOnError)
	configPath := flags.String("config", "", "path to habitat.yaml (default: $HABITAT_CONFIG)")
	return flags, configPath
}

func newClient(configPath string) (*client, error) {
	var conf *config.Config
	var err error
	if configPath != "" {
		conf, err = config.LoadFile(configPath)
	} else {
		conf, err = config.Load()
	}
	if err != nil {
		return nil, err
	}

	level, err := conf.SlogLevel()
	if err != nil {
		return nil, err
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	var signer relay.Signer
	keyHex, err := conf.PrivateKeyHex()
	if err != nil {
		return nil, err
	}
	if keyHex != "" {
		keySigner, err := relay.NewKeySigner(keyHex)
		if err != nil {
			return nil, err
		}
		signer = keySigner
	}

	pool, err := relay.NewPool(relay.PoolConfig{
		URLs:   conf.Relays,
		Signer: signer,
		Logger: logger,
	})
	if err != nil {
		return nil, err
	}

	repoConfig := rooms.RepositoryConfig{Client: pool, Logger: logger}
	roomRepo, err := rooms.NewRoomRepository(repoConfig)
	if err != nil {
		pool.Close()
		return nil, err
	}
	messageRepo, err := rooms.NewMessageRepository(repoConfig)
	if err != nil {
		pool.Close()
		return nil, err
	}
	publisher, err := rooms.NewPublisher(rooms.PublisherConfig{
		Client:    pool,
		Logger:    logger,
		RelayHint: conf.RelayHint,
		Rooms:     roomRepo,
		Messages:  messageRepo,
	})
	if err != nil {
		pool.Close()
		return nil, err
	}

	return &client{
		pool:      pool,
		rooms:     roomRepo,
		messages:  messageRepo,
		publisher: publisher,
	}, nil
}

// commandContext returns a context cancelled by SIGINT/SIGTERM, bounded
// by the given timeout (zero means no timeout, for long-running watch).
func commandContext(timeout time.Duration) (context.Context, context.CancelFunc) {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	if timeout == 0 {
		return ctx, cancel
	}
	ctx, timeoutCancel := context.WithTimeout(ctx, timeout)
	return ctx, func() {
		timeoutCancel()
		cancel()
	}
}

const queryTimeout = 30 * time.Second

func runRooms(args []string) error {
	flags, configPath := commandFlags("rooms")
	if err := flags.Parse(args); err != nil {
		return err
	}

	habitat, err := newClient(*configPath)
	if err != nil {
		return err
	}
	defer habitat.Close()

	ctx, cancel := commandContext(queryTimeout)
	defer cancel()

	list, err := habitat.rooms.ListRooms(ctx)
	if err != nil {
		return err
	}
	if len(list) == 0 {
		fmt.Println("no rooms")
		return nil
	}

	writer := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "ROOM\tTITLE\tTYPE\tUPDATED")
	for _, room := range list {
		fmt.Fprintf(writer, "%s\t%s\t%s\t%s\n",
			room.ID, room.Title, room.Scene.RoomType,
			time.Unix(room.UpdatedAt, 0).UTC().Format(time.RFC3339))
	}
	return writer.Flush()
}

func runRoom(args []string) error {
	flags, configPath := commandFlags("room")
	if err := flags.Parse(args); err != nil {
		return err
	}
	if flags.NArg() != 1 {
		return fmt.Errorf("usage: habitat room <authorKey:slug>")
	}
	id, err := rooms.ParseRoomID(flags.Arg(0))
	if err != nil {
		return err
	}

	habitat, err := newClient(*configPath)
	if err != nil {
		return err
	}
	defer habitat.Close()

	ctx, cancel := commandContext(queryTimeout)
	defer cancel()

	room, err := habitat.rooms.GetRoom(ctx, id.Author, id.Slug)
	if err != nil {
		return err
	}
	if room == nil {
		return fmt.Errorf("room %s not found", id)
	}

	fmt.Printf("Room:        %s\n", room.ID)
	fmt.Printf("Event:       %s\n", room.EventID)
	fmt.Printf("Title:       %s\n", room.Title)
	if room.Description != "" {
		fmt.Printf("Description: %s\n", room.Description)
	}
	if room.Image != "" {
		fmt.Printf("Image:       %s\n", room.Image)
	}
	fmt.Printf("Scene:       %s background, %d max users, public=%v, type=%s\n",
		room.Scene.BackgroundColor, room.Scene.MaxUsers, room.Scene.IsPublic, room.Scene.RoomType)
	if len(room.Labels) > 0 {
		fmt.Printf("Labels:      %v\n", room.Labels)
	}
	if room.Expiration != nil {
		fmt.Printf("Expires:     %s\n", time.Unix(*room.Expiration, 0).UTC().Format(time.RFC3339))
	}
	fmt.Printf("Updated:     %s\n", time.Unix(room.UpdatedAt, 0).UTC().Format(time.RFC3339))
	return nil
}

func runMessages(args []string) error {
	flags, configPath := commandFlags("messages")
	page := flags.Bool("page", false, "paginate backwards instead of showing the live window")
	before := flags.Int64("before", 0, "with --page: only messages created strictly before this unix time")
	if err := flags.Parse(args); err != nil {
		return err
	}
	if flags.NArg() != 1 {
		return fmt.Errorf("usage: habitat messages [--page [--before <unix>]] <room>")
	}

	habitat, err := newClient(*configPath)
	if err != nil {
		return err
	}
	defer habitat.Close()

	ctx, cancel := commandContext(queryTimeout)
	defer cancel()

	roomEventID, err := resolveRoomEvent(ctx, habitat, flags.Arg(0))
	if err != nil {
		return err
	}

	if *page {
		result, err := habitat.messages.ListMessagesPage(ctx, roomEventID, *before)
		if err != nil {
			return err
		}
		printMessages(result.Messages)
		if result.HasMore {
			fmt.Printf("\nolder messages: habitat messages --page --before %d %s\n",
				result.NextBefore, roomEventID)
		}
		return nil
	}

	list, err := habitat.messages.ListMessages(ctx, roomEventID)
	if err != nil {
		return err
	}
	printMessages(list)
	return nil
}

func printMessages(list []rooms.Message) {
	for _, message := range list {
		timestamp := time.Unix(message.CreatedAt, 0).UTC().Format("15:04:05")
		if message.Activity != "" {
			fmt.Printf("[%s] * %s %s\n", timestamp, shortKey(message.Author), message.Activity)
			continue
		}
		fmt.Printf("[%s] <%s> %s\n", timestamp, shortKey(message.Author), message.Content)
	}
}

// shortKey abbreviates a 64-character pubkey for terminal display.
func shortKey(pubkey string) string {
	if len(pubkey) <= 12 {
		return pubkey
	}
	return pubkey[:8] + "…"
}

// resolveRoomEvent turns a room argument into the room's current event
// ID. A composite "authorKey:slug" is looked up through the room
// repository; anything else is taken as a literal event ID.
func resolveRoomEvent(ctx context.Context, habitat *client, arg string) (string, error) {
	id, err := rooms.ParseRoomID(arg)
	if err != nil {
		return arg, nil
	}
	room, err := habitat.rooms.GetRoom(ctx, id.Author, id.Slug)
	if err != nil {
		return "", err
	}
	if room == nil {
		return "", fmt.Errorf("room %s not found", id)
	}
	return room.EventID, nil
}

func runWatch(args []string) error {
	flags, configPath := commandFlags("watch")
	if err := flags.Parse(args); err != nil {
		return err
	}
	if flags.NArg() != 1 {
		return fmt.Errorf("usage: habitat watch <room>")
	}

	habitat, err := newClient(*configPath)
	if err != nil {
		return err
	}
	defer habitat.Close()

	ctx, cancel := commandContext(0)
	defer cancel()

	roomEventID, err := resolveRoomEvent(ctx, habitat, flags.Arg(0))
	if err != nil {
		return err
	}

	poller := habitat.messages.Poll(ctx, roomEventID)

	// Print only messages newer than the last one already shown, so
	// each poll round appends instead of re-printing the window.
	var lastShown int64
	for snapshot := range poller.Updates() {
		for _, message := range snapshot {
			if message.CreatedAt <= lastShown {
				continue
			}
			printMessages([]rooms.Message{message})
			lastShown = message.CreatedAt
		}
	}
	return nil
}

// roomDraftFlags registers the flags shared by create-room and
// update-room and returns a closure assembling the draft after parse.
func roomDraftFlags(flags *pflag.FlagSet) func() rooms.RoomDraft {
	title := flags.String("title", "", "room title (required)")
	description := flags.String("description", "", "room description")
	image := flags.String("image", "", "room image URL")
	labels := flags.StringArray("label", nil, "free-form label (repeatable)")
	background := flags.String("background", "", "scene background color (e.g. #1a1a2e)")
	maxUsers := flags.Int("max-users", 0, "scene user capacity")
	private := flags.Bool("private", false, "mark the room private")
	roomType := flags.String("type", "", "room type (lobby, meeting, social, workspace, custom)")
	expiresIn := flags.Duration("expires-in", 0, "make the room ephemeral, expiring after this duration")

	return func() rooms.RoomDraft {
		draft := rooms.RoomDraft{
			Title:       *title,
			Description: *description,
			Image:       *image,
			Labels:      *labels,
		}
		if *background != "" || *maxUsers != 0 || *private || *roomType != "" {
			scene := rooms.DefaultScene()
			if *background != "" {
				scene.BackgroundColor = *background
			}
			if *maxUsers != 0 {
				scene.MaxUsers = *maxUsers
			}
			if *private {
				scene.IsPublic = false
			}
			if *roomType != "" {
				scene.RoomType = rooms.RoomType(*roomType)
			}
			draft.Scene = &scene
		}
		if *expiresIn > 0 {
			draft.Expiration = time.Now().Add(*expiresIn).Unix()
		}
		return draft
	}
}

func runCreateRoom(args []string) error {
	flags, configPath := commandFlags("create-room")
	draftOf := roomDraftFlags(flags)
	if err := flags.Parse(args); err != nil {
		return err
	}

	habitat, err := newClient(*configPath)
	if err != nil {
		return err
	}
	defer habitat.Close()

	ctx, cancel := commandContext(queryTimeout)
	defer cancel()

	creation, err := habitat.publisher.CreateRoom(ctx, draftOf())
	if err != nil {
		return err
	}
	fmt.Printf("created room %s\nevent %s\n", creation.ID, creation.Event.ID)
	return nil
}

func runUpdateRoom(args []string) error {
	flags, configPath := commandFlags("update-room")
	draftOf := roomDraftFlags(flags)
	if err := flags.Parse(args); err != nil {
		return err
	}
	if flags.NArg() != 1 {
		return fmt.Errorf("usage: habitat update-room [flags] <slug>")
	}

	habitat, err := newClient(*configPath)
	if err != nil {
		return err
	}
	defer habitat.Close()

	ctx, cancel := commandContext(queryTimeout)
	defer cancel()

	creation, err := habitat.publisher.UpdateRoom(ctx, flags.Arg(0), draftOf())
	if err != nil {
		return err
	}
	fmt.Printf("updated room %s\nevent %s\n", creation.ID, creation.Event.ID)
	return nil
}

func runSend(args []string) error {
	flags, configPath := commandFlags("send")
	mentions := flags.StringArray("mention", nil, "pubkey to mention (repeatable)")
	if err := flags.Parse(args); err != nil {
		return err
	}
	if flags.NArg() != 2 {
		return fmt.Errorf("usage: habitat send [flags] <room> <content>")
	}

	habitat, err := newClient(*configPath)
	if err != nil {
		return err
	}
	defer habitat.Close()

	ctx, cancel := commandContext(queryTimeout)
	defer cancel()

	roomEventID, err := resolveRoomEvent(ctx, habitat, flags.Arg(0))
	if err != nil {
		return err
	}

	event, err := habitat.publisher.SendMessage(ctx, roomEventID, flags.Arg(1), *mentions...)
	if err != nil {
		return err
	}
	fmt.Printf("sent %s\n", event.ID)
	return nil
}

func runSendEphemeral(args []string) error {
	flags, configPath := commandFlags("send-ephemeral")
	hours := flags.Int("hours", 0, "hours until expiry (default "+
		strconv.Itoa(rooms.DefaultMessageExpiryHours)+")")
	mentions := flags.StringArray("mention", nil, "pubkey to mention (repeatable)")
	if err := flags.Parse(args); err != nil {
		return err
	}
	if flags.NArg() != 2 {
		return fmt.Errorf("usage: habitat send-ephemeral [flags] <room> <content>")
	}

	habitat, err := newClient(*configPath)
	if err != nil {
		return err
	}
	defer habitat.Close()

	ctx, cancel := commandContext(queryTimeout)
	defer cancel()

	roomEventID, err := resolveRoomEvent(ctx, habitat, flags.Arg(0))
	if err != nil {
		return err
	}

	event, err := habitat.publisher.SendEphemeralMessage(ctx, roomEventID, flags.Arg(1), *hours, *mentions...)
	if err != nil {
		return err
	}
	fmt.Printf("sent %s\n", event.ID)
	return nil
}

// runKeygen generates a new signing keypair. The public key goes to
// stdout; the private key goes to stderr for the caller to store in
// the file named by key_file.
func runKeygen() error {
	signer, err := relay.GenerateKeySigner()
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "# Private key (keep this secret — store it at key_file):\n")
	fmt.Fprintf(os.Stderr, "%s\n", signer.PrivateKeyHex())
	fmt.Fprintf(os.Stdout, "%s\n", signer.Pubkey())
	return nil
}
