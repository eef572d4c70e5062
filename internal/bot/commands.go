package bot

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/kwatch/kalshibot/internal/platform/kalshi"
)

// handlerTimeout bounds the work behind a single slash command. Discord allows
// 15 minutes after a deferred response, but upstream calls should give up long
// before that.
const handlerTimeout = 30 * time.Second

// commandDefinitions returns the slash-command schema the bot registers.
func commandDefinitions() []*discordgo.ApplicationCommand {
	return []*discordgo.ApplicationCommand{
		{
			Name:        "find",
			Description: "Find open Kalshi markets by keyword",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "query",
					Description: "Keyword to search in market titles",
					Required:    true,
				},
			},
		},
		{
			Name:        "hot",
			Description: "Show top open markets by rough activity",
		},
		{
			Name:        "vol",
			Description: "Show volume, current price (in ¢), and change over N minutes",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "link_or_ticker",
					Description: "Kalshi link or ticker (e.g., KX...)",
					Required:    true,
				},
				{
					Type:        discordgo.ApplicationCommandOptionInteger,
					Name:        "minutes",
					Description: "Lookback window in minutes (default 15)",
					Required:    false,
				},
			},
		},
		{
			Name:        "watch",
			Description: "Watch a market; optional YES threshold to alert",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "ticker",
					Description: "Kalshi market ticker or link",
					Required:    true,
				},
				{
					Type:        discordgo.ApplicationCommandOptionNumber,
					Name:        "threshold",
					Description: "Alert when YES <= threshold (e.g., 0.35)",
					Required:    false,
				},
			},
		},
		{
			Name:        "unwatch",
			Description: "Remove a watched market",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "ticker",
					Description: "Kalshi market ticker",
					Required:    true,
				},
			},
		},
		{
			Name:        "watchlist",
			Description: "List watched markets for this server",
		},
		{
			Name:        "help",
			Description: "Show what this bot can do",
		},
	}
}

// dispatch routes an interaction to its handler.
func (b *Bot) dispatch(s *discordgo.Session, i *discordgo.InteractionCreate) {
	ctx, cancel := context.WithTimeout(context.Background(), handlerTimeout)
	defer cancel()

	name := i.ApplicationCommandData().Name
	b.logger.InfoContext(ctx, "command received",
		slog.String("command", name),
		slog.String("guild_id", i.GuildID),
	)

	switch name {
	case "find":
		b.handleFind(ctx, s, i)
	case "hot":
		b.handleHot(ctx, s, i)
	case "vol":
		b.handleVol(ctx, s, i)
	case "watch":
		b.handleWatch(s, i)
	case "unwatch":
		b.handleUnwatch(s, i)
	case "watchlist":
		b.handleWatchlist(s, i)
	case "help":
		b.handleHelp(s, i)
	}
}

func (b *Bot) handleFind(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate) {
	defer recoverHandler(b.logger, "find")
	query := stringOption(i, "query")
	b.deferReply(s, i)

	hits, err := b.market.Search(ctx, query, 10)
	if err != nil {
		b.followup(s, i, "Couldn't search markets: upstream API unavailable.")
		b.logger.WarnContext(ctx, "search failed", slog.String("error", err.Error()))
		return
	}
	if len(hits) == 0 {
		b.followup(s, i, fmt.Sprintf("No open markets matched `%s`.", query))
		return
	}

	entries := make([]string, 0, len(hits))
	for _, m := range hits {
		entries = append(entries, fmt.Sprintf("**%s**\n`%s` • YES≈%s", m.Title, m.Ticker, Cents(m.Yes)))
	}
	b.followupChunks(s, i, entries)
}

func (b *Bot) handleHot(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate) {
	defer recoverHandler(b.logger, "hot")
	b.deferReply(s, i)

	top, err := b.market.Hot(ctx, 10)
	if err != nil {
		b.followup(s, i, "Couldn't fetch markets: upstream API unavailable.")
		b.logger.WarnContext(ctx, "hot listing failed", slog.String("error", err.Error()))
		return
	}
	if len(top) == 0 {
		b.followup(s, i, "No open markets found.")
		return
	}

	entries := make([]string, 0, len(top))
	for _, m := range top {
		entries = append(entries, fmt.Sprintf("**%s**\n`%s` • YES≈%s • vol=%d",
			m.Title, m.Ticker, Cents(m.Yes), m.Volume))
	}
	b.followupChunks(s, i, entries)
}

func (b *Bot) handleVol(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate) {
	defer recoverHandler(b.logger, "vol")
	input := stringOption(i, "link_or_ticker")
	minutes := int(intOption(i, "minutes", 15))
	if minutes < 1 {
		minutes = 15
	}

	ticker := kalshi.ExtractTicker(input)
	if ticker == "" {
		b.respond(s, i, "I couldn't find a valid Kalshi ticker in that input.")
		return
	}
	b.deferReply(s, i)

	snap, delta, hasDelta, err := b.market.Report(ctx, ticker, minutes)
	if err != nil {
		b.followup(s, i, fmt.Sprintf("Couldn't fetch `%s`.", ticker))
		b.logger.WarnContext(ctx, "report failed",
			slog.String("ticker", ticker),
			slog.String("error", err.Error()),
		)
		return
	}

	head := fmt.Sprintf("**%s** • volume=%d\nYES≈%s %s • NO≈%s",
		ticker, snap.Volume, Cents(snap.YesPrice), sourceTag(snap.Source), Cents(snap.NoPrice))
	b.followup(s, i, head+"\n"+FormatDelta(delta, hasDelta, minutes))
}

func (b *Bot) handleWatch(s *discordgo.Session, i *discordgo.InteractionCreate) {
	defer recoverHandler(b.logger, "watch")
	input := stringOption(i, "ticker")

	ticker := kalshi.ExtractTicker(input)
	if ticker == "" {
		b.respond(s, i, "I couldn't find a valid Kalshi ticker in that input.")
		return
	}

	var threshold *float64
	if opt := findOption(i, "threshold"); opt != nil {
		v := opt.FloatValue()
		if v <= 0 || v > 1 {
			b.respond(s, i, "Threshold must be between 0 and 1 (e.g., 0.35).")
			return
		}
		threshold = &v
	}

	b.watches.Set(i.GuildID, ticker, threshold)

	msg := fmt.Sprintf("Watching `%s`", ticker)
	if threshold != nil {
		msg += fmt.Sprintf(" (alert when YES ≤ %.0f¢)", *threshold*100)
	}
	b.respond(s, i, msg)
}

func (b *Bot) handleUnwatch(s *discordgo.Session, i *discordgo.InteractionCreate) {
	defer recoverHandler(b.logger, "unwatch")
	input := stringOption(i, "ticker")

	ticker := kalshi.ExtractTicker(input)
	if ticker == "" {
		b.respond(s, i, "I couldn't find a valid Kalshi ticker in that input.")
		return
	}

	if b.watches.Remove(i.GuildID, ticker) {
		b.respond(s, i, fmt.Sprintf("Removed `%s` from the watchlist.", ticker))
	} else {
		b.respond(s, i, fmt.Sprintf("`%s` was not being watched.", ticker))
	}
}

func (b *Bot) handleWatchlist(s *discordgo.Session, i *discordgo.InteractionCreate) {
	defer recoverHandler(b.logger, "watchlist")

	watches := b.watches.List(i.GuildID)
	if len(watches) == 0 {
		b.respond(s, i, "No watches set.")
		return
	}

	entries := make([]string, 0, len(watches))
	for _, w := range watches {
		line := fmt.Sprintf("`%s`", w.Ticker)
		if w.Armed() {
			line += fmt.Sprintf(" (YES ≤ %.0f¢)", *w.Threshold*100)
		}
		entries = append(entries, line)
	}

	chunks := ChunkEntries(entries, "\n")
	b.respond(s, i, "Watches:\n"+chunks[0])
	for _, chunk := range chunks[1:] {
		b.followup(s, i, chunk)
	}
}

func (b *Bot) handleHelp(s *discordgo.Session, i *discordgo.InteractionCreate) {
	defer recoverHandler(b.logger, "help")
	b.respond(s, i, strings.Join([]string{
		"**Commands**",
		"`/find query` — search open markets by keyword",
		"`/hot` — top open markets by activity",
		"`/vol link_or_ticker [minutes]` — price, volume, and Δ over a window",
		"`/watch ticker [threshold]` — watch a market; alert when YES ≤ threshold",
		"`/unwatch ticker` — stop watching",
		"`/watchlist` — list this server's watches",
	}, "\n"))
}

// ---------------------------------------------------------------------------
// Interaction plumbing
// ---------------------------------------------------------------------------

// respond sends an immediate ephemeral reply.
func (b *Bot) respond(s *discordgo.Session, i *discordgo.InteractionCreate, content string) {
	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: content,
			Flags:   discordgo.MessageFlagsEphemeral,
		},
	})
	if err != nil {
		b.logger.Warn("interaction respond failed", slog.String("error", err.Error()))
	}
}

// deferReply acknowledges the interaction so a slow upstream call doesn't hit
// Discord's 3-second response deadline.
func (b *Bot) deferReply(s *discordgo.Session, i *discordgo.InteractionCreate) {
	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Flags: discordgo.MessageFlagsEphemeral,
		},
	})
	if err != nil {
		b.logger.Warn("interaction defer failed", slog.String("error", err.Error()))
	}
}

// followup sends an ephemeral follow-up message after a deferred response.
func (b *Bot) followup(s *discordgo.Session, i *discordgo.InteractionCreate, content string) {
	_, err := s.FollowupMessageCreate(i.Interaction, true, &discordgo.WebhookParams{
		Content: content,
		Flags:   discordgo.MessageFlagsEphemeral,
	})
	if err != nil {
		b.logger.Warn("interaction followup failed", slog.String("error", err.Error()))
	}
}

// followupChunks splits entries into size-limited messages and sends each.
func (b *Bot) followupChunks(s *discordgo.Session, i *discordgo.InteractionCreate, entries []string) {
	for _, chunk := range ChunkEntries(entries, "\n\n") {
		b.followup(s, i, chunk)
	}
}

// stringOption returns the named string option, or "".
func stringOption(i *discordgo.InteractionCreate, name string) string {
	if opt := findOption(i, name); opt != nil {
		return opt.StringValue()
	}
	return ""
}

// intOption returns the named integer option, or def when absent.
func intOption(i *discordgo.InteractionCreate, name string, def int64) int64 {
	if opt := findOption(i, name); opt != nil {
		return opt.IntValue()
	}
	return def
}

func findOption(i *discordgo.InteractionCreate, name string) *discordgo.ApplicationCommandInteractionDataOption {
	for _, opt := range i.ApplicationCommandData().Options {
		if opt.Name == name {
			return opt
		}
	}
	return nil
}

// recoverHandler keeps a panicking handler from taking down the session
// goroutine.
func recoverHandler(logger *slog.Logger, command string) {
	if r := recover(); r != nil {
		logger.Error("command handler panicked",
			slog.String("command", command),
			slog.Any("panic", r),
		)
	}
}
