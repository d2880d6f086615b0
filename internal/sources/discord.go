package sources

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/JonMunkholm/emojiimport/internal/core"
	"github.com/JonMunkholm/emojiimport/internal/fetch"
)

const (
	defaultDiscordGateway = "wss://gateway.discord.gg/?v=10&encoding=json"
	defaultDiscordCDN     = "https://cdn.discordapp.com/emojis/"

	// Gateway opcodes.
	opDispatch  = 0
	opHeartbeat = 1
	opIdentify  = 2
	opHello     = 10

	// Gateway intents: GUILDS | GUILD_EMOJIS_AND_STICKERS.
	discordIntents = 1<<0 | 1<<3

	// discordGuildWait bounds the wait for the guild after identifying.
	discordGuildWait = 30 * time.Second
)

func init() {
	core.RegisterSource(core.SourceDefinition{
		Info: core.SourceInfo{
			Key:           "discord",
			Group:         groupChat,
			Label:         "Custom emoji of a Discord server",
			Param:         "guild-id",
			ParamRequired: true,
			Usage:         "Import the custom emoji of a Discord server the bot is a member of. Requires DISCORD_BOT_TOKEN.",
		},
		New: func(d core.SourceDeps) (core.Source, error) {
			return NewDiscord(d.HTTP, d.Credentials)
		},
	})
}

// Discord reads guild emoji from the gateway GUILD_CREATE events a bot
// receives right after identifying.
type Discord struct {
	gatewayURL string
	cdnURL     string
	token      string
	userAgent  string
	guildWait  time.Duration
}

// NewDiscord creates a discord source. DISCORD_BOT_TOKEN is required.
func NewDiscord(client *fetch.Client, creds core.Credentials) (*Discord, error) {
	if err := requireCredential("discord", "DISCORD_BOT_TOKEN", creds.DiscordBotToken); err != nil {
		return nil, err
	}
	ua := fetch.DefaultUserAgent
	if client != nil {
		ua = client.UserAgent()
	}
	return &Discord{
		gatewayURL: defaultDiscordGateway,
		cdnURL:     defaultDiscordCDN,
		token:      creds.DiscordBotToken,
		userAgent:  ua,
		guildWait:  discordGuildWait,
	}, nil
}

type gatewayPayload struct {
	Op int             `json:"op"`
	D  json.RawMessage `json:"d,omitempty"`
	S  *int64          `json:"s,omitempty"`
	T  string          `json:"t,omitempty"`
}

type discordEmoji struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Animated  bool   `json:"animated"`
	Available *bool  `json:"available"`
}

type discordGuild struct {
	ID     string         `json:"id"`
	Emojis []discordEmoji `json:"emojis"`
}

// Produce connects to the gateway, identifies and waits for the
// GUILD_CREATE of the selected guild. It fails when READY does not list
// the guild.
func (s *Discord) Produce(ctx context.Context, selector string) ([]core.Candidate, error) {
	guildID, err := requireSelector("discord", "guild id", selector)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.guildWait)
	defer cancel()

	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	header := make(http.Header)
	header.Set("User-Agent", s.userAgent)

	conn, _, err := dialer.DialContext(ctx, s.gatewayURL, header)
	if err != nil {
		return nil, fmt.Errorf("connect discord gateway: %w", err)
	}
	defer conn.Close()

	// Unblock reads when the context ends.
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	gw := &gatewaySession{conn: conn}
	guild, err := gw.awaitGuild(ctx, s.token, guildID)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("discord guild %s: %w", guildID, ctx.Err())
		}
		return nil, err
	}
	_ = gw.write(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))

	var set candidateSet
	for _, e := range guild.Emojis {
		if e.Available != nil && !*e.Available {
			continue
		}
		ext := ".png"
		if e.Animated {
			ext = ".gif"
		}
		set.add(e.Name, s.cdnURL+e.ID+ext)
	}
	return set.candidates(), nil
}

// gatewaySession serializes writes between the reader and the heartbeat.
type gatewaySession struct {
	conn    *websocket.Conn
	writeMu sync.Mutex

	seqMu sync.Mutex
	seq   *int64
}

func (g *gatewaySession) write(messageType int, data []byte) error {
	g.writeMu.Lock()
	defer g.writeMu.Unlock()
	return g.conn.WriteMessage(messageType, data)
}

func (g *gatewaySession) send(op int, d any) error {
	raw, err := json.Marshal(d)
	if err != nil {
		return err
	}
	msg, err := json.Marshal(gatewayPayload{Op: op, D: raw})
	if err != nil {
		return err
	}
	return g.write(websocket.TextMessage, msg)
}

func (g *gatewaySession) read() (gatewayPayload, error) {
	var p gatewayPayload
	_, msg, err := g.conn.ReadMessage()
	if err != nil {
		return p, err
	}
	if err := json.Unmarshal(msg, &p); err != nil {
		return p, fmt.Errorf("decode gateway payload: %w", err)
	}
	if p.S != nil {
		g.seqMu.Lock()
		g.seq = p.S
		g.seqMu.Unlock()
	}
	return p, nil
}

func (g *gatewaySession) heartbeat(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			g.seqMu.Lock()
			seq := g.seq
			g.seqMu.Unlock()
			if err := g.send(opHeartbeat, seq); err != nil {
				slog.Debug("discord heartbeat failed", "error", err)
				return
			}
		}
	}
}

func (g *gatewaySession) awaitGuild(ctx context.Context, token, guildID string) (*discordGuild, error) {
	hello, err := g.read()
	if err != nil {
		return nil, fmt.Errorf("read gateway hello: %w", err)
	}
	if hello.Op != opHello {
		return nil, fmt.Errorf("unexpected gateway opcode %d, want hello", hello.Op)
	}
	var helloData struct {
		HeartbeatInterval int64 `json:"heartbeat_interval"`
	}
	if err := json.Unmarshal(hello.D, &helloData); err != nil {
		return nil, fmt.Errorf("decode gateway hello: %w", err)
	}

	identify := map[string]any{
		"token":   token,
		"intents": discordIntents,
		"properties": map[string]string{
			"os":      "linux",
			"browser": "emojiimport",
			"device":  "emojiimport",
		},
	}
	if err := g.send(opIdentify, identify); err != nil {
		return nil, fmt.Errorf("identify: %w", err)
	}

	if helloData.HeartbeatInterval > 0 {
		hbCtx, stop := context.WithCancel(ctx)
		defer stop()
		go g.heartbeat(hbCtx, time.Duration(helloData.HeartbeatInterval)*time.Millisecond)
	}

	for {
		p, err := g.read()
		if err != nil {
			var closeErr *websocket.CloseError
			if errors.As(err, &closeErr) && closeErr.Code == 4004 {
				return nil, fmt.Errorf("%w: discord rejected DISCORD_BOT_TOKEN", core.ErrConfig)
			}
			return nil, fmt.Errorf("read gateway: %w", err)
		}
		if p.Op != opDispatch {
			continue
		}

		switch p.T {
		case "READY":
			var ready struct {
				Guilds []discordGuild `json:"guilds"`
			}
			if err := json.Unmarshal(p.D, &ready); err != nil {
				return nil, fmt.Errorf("decode READY: %w", err)
			}
			found := false
			for _, gd := range ready.Guilds {
				if gd.ID == guildID {
					found = true
				}
			}
			if !found {
				return nil, fmt.Errorf("bot is not a member of discord guild %s", guildID)
			}

		case "GUILD_CREATE":
			var guild discordGuild
			if err := json.Unmarshal(p.D, &guild); err != nil {
				return nil, fmt.Errorf("decode GUILD_CREATE: %w", err)
			}
			if guild.ID == guildID {
				return &guild, nil
			}
		}
	}
}

