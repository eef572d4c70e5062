// Package bot is the Discord surface of kalshibot: slash-command registration
// and dispatch, reply formatting, and in-guild alert delivery for the sweep.
package bot

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/bwmarrin/discordgo"

	"github.com/kwatch/kalshibot/internal/domain"
	"github.com/kwatch/kalshibot/internal/service"
)

// Bot owns the Discord session and the command handlers.
type Bot struct {
	session *discordgo.Session
	market  *service.MarketService
	watches domain.WatchlistStore
	// guildIDs restricts command registration; empty means global.
	guildIDs []string
	logger   *slog.Logger

	mu sync.Mutex
	// alertChannels caches the resolved alert channel per guild.
	alertChannels map[string]string
}

// New creates a Bot with an unopened session.
func New(
	token string,
	guildIDs []string,
	market *service.MarketService,
	watches domain.WatchlistStore,
	logger *slog.Logger,
) (*Bot, error) {
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("bot: create session: %w", err)
	}
	session.Identify.Intents = discordgo.IntentsGuilds

	return &Bot{
		session:       session,
		market:        market,
		watches:       watches,
		guildIDs:      guildIDs,
		logger:        logger.With(slog.String("component", "bot")),
		alertChannels: make(map[string]string),
	}, nil
}

// Run opens the gateway session, registers the slash commands, and blocks
// until the context is cancelled. Registered commands are left in place on
// shutdown; Discord replaces them on the next registration.
func (b *Bot) Run(ctx context.Context) error {
	b.session.AddHandler(func(s *discordgo.Session, i *discordgo.InteractionCreate) {
		if i.Type != discordgo.InteractionApplicationCommand {
			return
		}
		b.dispatch(s, i)
	})

	if err := b.session.Open(); err != nil {
		return fmt.Errorf("bot: open session: %w", err)
	}
	defer b.session.Close()

	if err := b.registerCommands(); err != nil {
		return fmt.Errorf("bot: %w", err)
	}

	b.logger.InfoContext(ctx, "bot ready",
		slog.String("user", b.session.State.User.Username),
		slog.Int("guild_scopes", len(b.guildIDs)),
	)

	<-ctx.Done()
	return ctx.Err()
}

// registerCommands registers the slash commands either globally or in each
// configured guild. Guild-scoped commands propagate immediately; global ones
// can take minutes to appear.
func (b *Bot) registerCommands() error {
	appID := b.session.State.User.ID
	scopes := b.guildIDs
	if len(scopes) == 0 {
		scopes = []string{""} // global
	}

	for _, guildID := range scopes {
		for _, cmd := range commandDefinitions() {
			if _, err := b.session.ApplicationCommandCreate(appID, guildID, cmd); err != nil {
				return fmt.Errorf("register command %s: %w", cmd.Name, err)
			}
		}
	}
	return nil
}

// SendAlert posts an alert message into the guild's alert channel: the first
// text channel the bot can see. It returns domain.ErrNoChannel when the guild
// has no viable channel.
func (b *Bot) SendAlert(ctx context.Context, guildID, message string) error {
	channelID, err := b.alertChannel(guildID)
	if err != nil {
		return err
	}
	if _, err := b.session.ChannelMessageSend(channelID, message, discordgo.WithContext(ctx)); err != nil {
		// The cached channel may have been deleted; drop it and retry once.
		b.mu.Lock()
		delete(b.alertChannels, guildID)
		b.mu.Unlock()
		return fmt.Errorf("bot: send alert to %s: %w", guildID, err)
	}
	return nil
}

// alertChannel resolves and caches the first text channel of a guild.
func (b *Bot) alertChannel(guildID string) (string, error) {
	b.mu.Lock()
	if id, ok := b.alertChannels[guildID]; ok {
		b.mu.Unlock()
		return id, nil
	}
	b.mu.Unlock()

	channels, err := b.session.GuildChannels(guildID)
	if err != nil {
		return "", fmt.Errorf("bot: list channels for %s: %w", guildID, err)
	}
	for _, ch := range channels {
		if ch.Type == discordgo.ChannelTypeGuildText {
			b.mu.Lock()
			b.alertChannels[guildID] = ch.ID
			b.mu.Unlock()
			return ch.ID, nil
		}
	}
	return "", domain.ErrNoChannel
}

// Compile-time interface check.
var _ service.AlertSender = (*Bot)(nil)
