// Command replyctl drives the daemon bus from a terminal: it sends one
// command and prints the events that answer it.
//
//	replyctl draft -body "Can we meet Tuesday?" -sender Ana -creativity creative
//	replyctl check
//	replyctl send -to ana@example.com -subject "Re: Tuesday" -body "Works for me."
//	replyctl clear-token
//	replyctl last
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"auto-replier-be/pkg/draft"
	"auto-replier-be/pkg/events"

	"github.com/fasthttp/websocket"
	"github.com/fatih/color"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	fs := flag.NewFlagSet(os.Args[1], flag.ExitOnError)
	addr := fs.String("addr", "ws://localhost:4100/api/ws", "bus WebSocket URL")
	token := fs.String("token", os.Getenv("BUS_TOKEN"), "bus JWT, when the daemon requires one")
	timeout := fs.Duration("timeout", 2*time.Minute, "give up waiting after this long")
	body := fs.String("body", "", "email body (draft) or message body (send)")
	sender := fs.String("sender", "", "sender display name")
	style := fs.String("style", "", "reply style")
	creativity := fs.String("creativity", "", "precise, balanced or creative")
	to := fs.String("to", "", "recipient; inferred from the last extraction when empty")
	subject := fs.String("subject", "", "subject line")
	_ = fs.Parse(os.Args[2:])

	cmd, ok := buildCommand(os.Args[1], *body, *sender, *style, *creativity, *to, *subject)
	if !ok {
		usage()
		os.Exit(2)
	}

	header := http.Header{}
	if *token != "" {
		header.Set("Authorization", "Bearer "+*token)
	}
	conn, _, err := websocket.DefaultDialer.Dial(*addr, header)
	if err != nil {
		color.Red("Failed to connect to %s: %v", *addr, err)
		os.Exit(1)
	}
	defer conn.Close()

	if err := conn.WriteJSON(cmd); err != nil {
		color.Red("Failed to send command: %v", err)
		os.Exit(1)
	}
	_ = conn.SetReadDeadline(time.Now().Add(*timeout))

	sess := newSession(cmd.Type)
	for {
		var ev events.BusEvent
		_, data, err := conn.ReadMessage()
		if err != nil {
			color.Red("\nConnection ended: %v", err)
			os.Exit(1)
		}
		if err := json.Unmarshal(data, &ev); err != nil {
			continue
		}
		done, failed := sess.handle(os.Stdout, ev)
		if done {
			if failed {
				os.Exit(1)
			}
			return
		}
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: replyctl <draft|check|send|clear-token|last> [flags]")
}

func buildCommand(name, body, sender, style, creativity, to, subject string) (events.Command, bool) {
	switch name {
	case "draft":
		return events.Command{Type: events.CommandGenerateDraft, EmailBody: body, SenderName: sender, Style: style, Creativity: creativity}, true
	case "check":
		return events.Command{Type: events.CommandCheckAvailability}, true
	case "send":
		return events.Command{Type: events.CommandSendViaGmail, To: to, Subject: subject, Body: body}, true
	case "clear-token":
		return events.Command{Type: events.CommandClearCachedToken}, true
	case "last":
		return events.Command{Type: events.CommandRequestExtraction}, true
	default:
		return events.Command{}, false
	}
}

// session follows the answer to one command. The bus carries every client's
// events, so draft events are held back until the daemon acknowledges the
// command with our generation id, and anything tagged with another id is
// ignored.
type session struct {
	cmdType string
	id      uint64
	acked   bool
	pending []events.BusEvent
	tracker draft.Tracker
}

func newSession(cmdType string) *session {
	return &session{cmdType: cmdType}
}

// handle prints ev if it answers the session's command. done reports that the
// answer is complete; failed that it was an error.
func (s *session) handle(out io.Writer, ev events.BusEvent) (done, failed bool) {
	if ev.Type == events.TypeCommandAccepted {
		if s.acked || ev.Command != s.cmdType {
			return false, false
		}
		s.acked = true
		s.id = ev.GenerationID
		if s.cmdType != events.CommandGenerateDraft {
			return false, false
		}
		s.tracker.Start(s.id)
		pending := s.pending
		s.pending = nil
		for _, p := range pending {
			if done, failed := s.render(out, p); done {
				return done, failed
			}
		}
		return false, false
	}

	if s.cmdType == events.CommandGenerateDraft && !s.acked {
		if isDraftEvent(ev) {
			s.pending = append(s.pending, ev)
		}
		return false, false
	}
	return s.render(out, ev)
}

func isDraftEvent(ev events.BusEvent) bool {
	return ev.Type == events.TypePartial || ev.Type == events.TypeFinal || ev.Type == events.TypeDraftError
}

func (s *session) render(out io.Writer, ev events.BusEvent) (done, failed bool) {
	tracker := &s.tracker
	switch s.cmdType {
	case events.CommandGenerateDraft:
		if ev.GenerationID != s.id {
			return false, false
		}
		switch ev.Type {
		case events.TypePartial:
			if tracker.Partial(ev.GenerationID, ev.Content) {
				fmt.Fprint(out, ev.Content)
			}
		case events.TypeFinal:
			if tracker.Final(ev.GenerationID, ev.Content) {
				fmt.Fprintln(out)
				fmt.Fprintln(out, color.GreenString("--- draft #%d ---", ev.GenerationID))
				fmt.Fprintln(out, ev.Content)
				return true, false
			}
		case events.TypeDraftError:
			if tracker.Fail(ev.GenerationID) {
				fmt.Fprintln(out, color.RedString("\ndraft #%d failed: %s", ev.GenerationID, ev.Error))
				return true, true
			}
		}

	case events.CommandCheckAvailability:
		if ev.Type == events.TypeModelStatusUpdate && ev.Available != nil {
			if *ev.Available {
				fmt.Fprintln(out, color.GreenString("model available"))
			} else {
				fmt.Fprintln(out, color.YellowString("model not available"))
			}
			return true, false
		}

	case events.CommandSendViaGmail:
		switch ev.Type {
		case events.TypeGmailSendSuccess:
			fmt.Fprintln(out, color.GreenString("sent"))
			return true, false
		case events.TypeGmailSendError:
			fmt.Fprintln(out, color.RedString("send failed: %s", ev.Error))
			return true, true
		}

	case events.CommandClearCachedToken:
		switch ev.Type {
		case events.TypeClearTokenDone:
			fmt.Fprintln(out, color.GreenString("cached token cleared"))
			return true, false
		case events.TypeClearTokenError:
			fmt.Fprintln(out, color.RedString("clear failed: %s", ev.Error))
			return true, true
		}

	case events.CommandRequestExtraction:
		if ev.Type == events.TypePageEmailExtracted {
			fmt.Fprintln(out, color.CyanString("from: %s <%s>", ev.SenderName, ev.SenderEmail))
			fmt.Fprintln(out, ev.Body)
			return true, false
		}
	}
	return false, false
}
