// Command cli is a terminal client for TheCueRoom API. It drives the same
// optimistic post-card state the web client uses: reactions apply locally
// first, then reconcile with the server response or roll back on failure.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/spf13/cobra"
	"github.com/thecueroom/backend/internal/models"
	"github.com/thecueroom/backend/internal/postcard"
	ws "github.com/thecueroom/backend/internal/websocket"
)

var (
	serverURL string
	authToken string
)

var rootCmd = &cobra.Command{
	Use:   "cueroom-cli",
	Short: "TheCueRoom CLI - underground electronic music community",
	Long: `TheCueRoom CLI is a command-line client for TheCueRoom community
platform. React to posts, read and write comments, and watch the
optimistic state machine reconcile with the server.`,
}

var loginCmd = &cobra.Command{
	Use:   "login <email> <password>",
	Short: "Authenticate and print a bearer token",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		body, err := postJSON("/api/auth/login", map[string]string{
			"email":    args[0],
			"password": args[1],
		})
		if err != nil {
			return err
		}

		var resp struct {
			Token     string    `json:"token"`
			ExpiresAt time.Time `json:"expires_at"`
		}
		if err := json.Unmarshal(body, &resp); err != nil {
			return fmt.Errorf("unexpected login response: %w", err)
		}

		fmt.Println(resp.Token)
		fmt.Fprintf(os.Stderr, "expires %s\n", resp.ExpiresAt.Format(time.RFC3339))
		return nil
	},
}

var reactCmd = &cobra.Command{
	Use:   "react <post-id> <type>",
	Short: "React to a post (optimistic, rolls back on failure)",
	Long: `Applies the reaction locally before the network call resolves,
exactly like the web post card. Selecting your current reaction toggles
it off. On server failure the local state is restored from the snapshot.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		postID := args[0]
		reaction := models.ReactionType(args[1])
		if !reaction.IsValid() {
			return fmt.Errorf("unknown reaction type %q (valid: %v)", args[1], models.AllReactionTypes)
		}

		state, err := fetchReactionState(postID)
		if err != nil {
			return err
		}

		snap, toggledOff := state.Apply(reaction)
		fmt.Printf("optimistic: current=%s counts=%v\n", displayReaction(state.Current()), state.Counts())

		var body []byte
		if toggledOff {
			body, err = deleteJSON("/api/posts/" + postID + "/react")
		} else {
			body, err = postJSON("/api/posts/"+postID+"/react", map[string]string{
				"reactionType": string(reaction),
			})
		}
		if err != nil {
			state.Rollback(snap)
			fmt.Printf("rolled back: current=%s counts=%v\n", displayReaction(state.Current()), state.Counts())
			return err
		}

		serverReaction, serverCounts, err := parseReactionResponse(body)
		if err != nil {
			state.Rollback(snap)
			return err
		}
		state.Confirm(serverReaction, serverCounts)

		fmt.Printf("confirmed:  current=%s counts=%v\n", displayReaction(state.Current()), state.Counts())
		return nil
	},
}

var commentCmd = &cobra.Command{
	Use:   "comment <post-id> <content>",
	Short: "Comment on a post (appears pending until confirmed)",
	Long: `Appends the comment locally before the network call resolves,
exactly like the web post card. Mentioning ` + postcard.BotMention + ` summons the
auto-reply bot; its reply is generated via CUEROOM_BOT_URL when set and
falls back to a canned line otherwise.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		postID, content := args[0], args[1]

		thread := postcard.NewCommentThread(nil)
		tempID := thread.AppendPending(postcard.CommentEntry{
			PostID:  postID,
			Content: content,
		})
		fmt.Printf("pending: %s\n", tempID)

		body, err := postJSON("/api/posts/"+postID+"/comments", map[string]string{
			"content": content,
		})
		if err != nil {
			thread.Fail(tempID)
			fmt.Println("comment removed after failure")
			return err
		}

		var resp struct {
			Comment struct {
				ID        string    `json:"id"`
				Content   string    `json:"content"`
				CreatedAt time.Time `json:"created_at"`
			} `json:"comment"`
		}
		if err := json.Unmarshal(body, &resp); err != nil {
			return fmt.Errorf("unexpected comment response: %w", err)
		}

		thread.Resolve(tempID, postcard.CommentEntry{
			ID:        resp.Comment.ID,
			PostID:    postID,
			Content:   resp.Comment.Content,
			CreatedAt: resp.Comment.CreatedAt,
		})
		fmt.Printf("confirmed: %s\n", resp.Comment.ID)

		bot := postcard.NewMentionBot(botGenerator())
		prior := thread.Len()
		if bot.HandleComment(cmd.Context(), thread, postID, content) {
			fmt.Fprintln(os.Stderr, "bot summoned, waiting for reply...")
			reply, ok := awaitBotReply(thread, prior, 15*time.Second)
			if !ok {
				fmt.Fprintln(os.Stderr, "bot reply did not arrive")
				return nil
			}
			fmt.Printf("%s: %s\n", reply.Username, reply.Content)
		}
		return nil
	},
}

// botGenerator returns the reply generator configured via CUEROOM_BOT_URL,
// or nil so the bot uses its canned fallback.
func botGenerator() postcard.ReplyGenerator {
	if endpoint := os.Getenv("CUEROOM_BOT_URL"); endpoint != "" {
		return postcard.NewHTTPReplyGenerator(endpoint)
	}
	return nil
}

// awaitBotReply polls the thread until an entry lands past the prior
// length. The bot appends asynchronously after a fixed delay, so the only
// observable signal is the list growing.
func awaitBotReply(thread *postcard.CommentThread, prior int, timeout time.Duration) (postcard.CommentEntry, bool) {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if entries := thread.Entries(); len(entries) > prior {
			return entries[len(entries)-1], true
		}
		time.Sleep(100 * time.Millisecond)
	}
	return postcard.CommentEntry{}, false
}

var watchCmd = &cobra.Command{
	Use:   "watch <post-id>",
	Short: "Stream a post's live events over the WebSocket",
	Long: `Connects to /ws, joins the post's room, and prints comments,
reaction updates, and typing indicators as they arrive. Interrupt with
Ctrl-C to disconnect.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		postID := args[0]

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		dialCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		conn, _, err := websocket.Dial(dialCtx, serverURL+"/ws?token="+authToken, nil)
		if err != nil {
			return fmt.Errorf("websocket dial failed: %w", err)
		}
		defer conn.Close(websocket.StatusNormalClosure, "bye")

		join := ws.NewMessage(ws.MessageTypeJoinRoom, ws.JoinRoomPayload{RoomID: postID})
		if err := wsjson.Write(ctx, conn, join); err != nil {
			return fmt.Errorf("join room failed: %w", err)
		}
		fmt.Fprintf(os.Stderr, "watching post %s\n", postID)

		for {
			var msg ws.Message
			if err := wsjson.Read(ctx, conn, &msg); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				return fmt.Errorf("connection closed: %w", err)
			}
			printEvent(&msg)
		}
	},
}

// printEvent renders one inbound frame as a single terminal line
func printEvent(msg *ws.Message) {
	switch msg.Type {
	case ws.MessageTypeCommentAdded:
		var p ws.CommentPayload
		if msg.ParsePayload(&p) == nil {
			fmt.Printf("[comment] %s: %s\n", p.Username, p.Body)
		}
	case ws.MessageTypeReactionUpdate:
		var p ws.ReactionUpdatePayload
		if msg.ParsePayload(&p) == nil {
			fmt.Printf("[reactions] %v\n", p.Counts)
		}
	case ws.MessageTypeUserTyping:
		var p ws.TypingPayload
		if msg.ParsePayload(&p) == nil {
			fmt.Printf("[typing] %s\n", p.Username)
		}
	case ws.MessageTypeUserStopTyping:
		// quiet; the indicator expiring is not worth a line
	case ws.MessageTypeSystem:
		var p ws.SystemPayload
		if msg.ParsePayload(&p) == nil {
			fmt.Printf("[system] %s %s\n", p.Event, p.Message)
		}
	case ws.MessageTypeError:
		var p ws.ErrorPayload
		if msg.ParsePayload(&p) == nil {
			fmt.Printf("[error] %s: %s\n", p.Code, p.Message)
		}
	default:
		fmt.Printf("[%s]\n", msg.Type)
	}
}

var reactionsCmd = &cobra.Command{
	Use:   "reactions <post-id>",
	Short: "Show a post's reaction counts",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		state, err := fetchReactionState(args[0])
		if err != nil {
			return err
		}
		for _, t := range models.AllReactionTypes {
			fmt.Printf("%-10s %d\n", t, state.Counts()[t])
		}
		if state.Current() != "" {
			fmt.Printf("yours: %s\n", state.Current())
		}
		return nil
	},
}

// fetchReactionState loads server counts into a fresh local state
func fetchReactionState(postID string) (*postcard.ReactionState, error) {
	body, err := getJSON("/api/posts/" + postID + "/reactions")
	if err != nil {
		return nil, err
	}
	serverReaction, serverCounts, err := parseReactionResponse(body)
	if err != nil {
		return nil, err
	}
	return postcard.NewReactionState(serverReaction, serverCounts), nil
}

func parseReactionResponse(body []byte) (models.ReactionType, map[models.ReactionType]int, error) {
	var resp struct {
		Reactions    map[string]int `json:"reactions"`
		UserReaction *string        `json:"userReaction"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", nil, fmt.Errorf("unexpected reactions response: %w", err)
	}

	counts := make(map[models.ReactionType]int, len(resp.Reactions))
	for t, n := range resp.Reactions {
		counts[models.ReactionType(t)] = n
	}

	current := models.ReactionType("")
	if resp.UserReaction != nil {
		current = models.ReactionType(*resp.UserReaction)
	}
	return current, counts, nil
}

func displayReaction(r models.ReactionType) string {
	if r == "" {
		return "none"
	}
	return string(r)
}

func doRequest(method, path string, payload interface{}) ([]byte, error) {
	var reqBody *bytes.Buffer = bytes.NewBuffer(nil)
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		reqBody = bytes.NewBuffer(data)
	}

	req, err := http.NewRequest(method, serverURL+path, reqBody)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if authToken != "" {
		req.Header.Set("Authorization", "Bearer "+authToken)
	}

	client := &http.Client{Timeout: 15 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(resp.Body); err != nil {
		return nil, err
	}

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("%s %s: HTTP %d: %s", method, path, resp.StatusCode, buf.String())
	}
	return buf.Bytes(), nil
}

func getJSON(path string) ([]byte, error) {
	return doRequest(http.MethodGet, path, nil)
}

func postJSON(path string, payload interface{}) ([]byte, error) {
	return doRequest(http.MethodPost, path, payload)
}

func deleteJSON(path string) ([]byte, error) {
	return doRequest(http.MethodDelete, path, nil)
}

func main() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", envOr("CUEROOM_SERVER", "http://localhost:8080"), "API server base URL")
	rootCmd.PersistentFlags().StringVar(&authToken, "token", os.Getenv("CUEROOM_TOKEN"), "Bearer token (or CUEROOM_TOKEN env)")

	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(reactCmd)
	rootCmd.AddCommand(reactionsCmd)
	rootCmd.AddCommand(commentCmd)
	rootCmd.AddCommand(watchCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
