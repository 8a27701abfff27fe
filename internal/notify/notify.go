// Package notify emails a standings summary whenever the leader changes.
package notify

import (
	"context"
	"fmt"
	"net/smtp"
	"sort"
	"strings"
	"sync"

	"votetracker/internal/components/assert"
	"votetracker/internal/components/telemetry"
	"votetracker/internal/tracker"

	"github.com/jordan-wright/email"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

type Message struct {
	Subject string
	Body    string
}

// Sender delivers a message.
//
// note: fault injection point
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

type SmtpConfig struct {
	Server   string
	Port     int
	Username string
	Password string
	From     string
	To       []string
}

type SmtpSender struct {
	config SmtpConfig
}

func NewSmtpSender(config SmtpConfig) SmtpSender {
	return SmtpSender{config: config}
}

func (s SmtpSender) Send(ctx context.Context, msg Message) error {
	mail := email.NewEmail()
	mail.From = fmt.Sprintf("Vote Tracker <%s>", s.config.From)
	mail.To = s.config.To
	mail.Subject = msg.Subject
	mail.Text = []byte(msg.Body)

	addr := fmt.Sprintf("%s:%d", s.config.Server, s.config.Port)
	var auth smtp.Auth
	if s.config.Username != "" {
		auth = smtp.PlainAuth("", s.config.Username, s.config.Password, s.config.Server)
	}

	err := mail.Send(addr, auth)
	if err != nil && auth != nil && strings.Contains(err.Error(), "server doesn't support AUTH") {
		err = mail.Send(addr, nil)
	}
	if err != nil {
		return fmt.Errorf("send leader alert: %w", err)
	}
	return nil
}

// LeaderAlert is a scheduler listener that sends a message whenever a cycle's leader differs
// from the previous cycle's leader. The first leader seen is only remembered.
type LeaderAlert struct {
	sender Sender
	tel    telemetry.API

	mu     sync.Mutex
	leader string
}

func NewLeaderAlert(sender Sender, tel telemetry.API) *LeaderAlert {
	assert.NotNil(sender)
	assert.NotNil(tel)
	return &LeaderAlert{
		sender: sender,
		tel:    telemetry.NewScopedAPI("notify", tel),
	}
}

func (a *LeaderAlert) OnCycle(ctx context.Context, report tracker.CycleReport) error {
	if report.Result == nil || report.Result.LeaderID == "" {
		return nil
	}

	a.mu.Lock()
	previous := a.leader
	a.leader = report.Result.LeaderID
	a.mu.Unlock()

	if previous == "" || previous == report.Result.LeaderID {
		return nil
	}

	msg := leaderChangedMessage(report.Snapshot, previous, report.Result.LeaderID)
	a.tel.ReportDebug("leader changed", previous, report.Result.LeaderID)
	return a.sender.Send(ctx, msg)
}

var printer = message.NewPrinter(language.English)

func leaderChangedMessage(snapshot tracker.Snapshot, previous, current string) Message {
	name := func(id string) string {
		e, ok := snapshot.Entity(id)
		if !ok {
			return id
		}
		return e.Name
	}

	standings := make([]tracker.EntitySnapshot, len(snapshot.Entities))
	copy(standings, snapshot.Entities)
	sort.SliceStable(standings, func(i, j int) bool {
		return votesOf(standings[i]) > votesOf(standings[j])
	})

	var body strings.Builder
	body.WriteString(printer.Sprintf("%s overtook %s.\n\n", name(current), name(previous)))
	for i, e := range standings {
		if e.Votes == nil {
			body.WriteString(printer.Sprintf("%d. %s: no data\n", i+1, e.Name))
			continue
		}
		body.WriteString(printer.Sprintf(
			"%d. %s: %d votes (+%d this session)\n",
			i+1, e.Name, *e.Votes, e.SessionDelta,
		))
	}

	return Message{
		Subject: fmt.Sprintf("New leader: %s", name(current)),
		Body:    body.String(),
	}
}

func votesOf(e tracker.EntitySnapshot) int64 {
	if e.Votes == nil {
		return -1
	}
	return *e.Votes
}
