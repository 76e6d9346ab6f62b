package commands

import (
	"fmt"
	"math"
	"strings"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/handler"
	"github.com/disgoorg/paginator"

	"github.com/minefieldbot/minefield/minefield"
	"github.com/minefieldbot/minefield/minefield/config"
)

var Leaderboard = discord.SlashCommandCreate{
	Name:        "leaderboard",
	Description: "🏆 Who has earned the most walking the minefield",
}

func LeaderboardHandler(b *minefield.Bot) handler.CommandHandler {
	return func(e *handler.CommandEvent) error {
		ctx, cancel := commandCtx()
		defer cancel()

		users, err := b.UserRepository.Leaderboard(ctx, e.GuildID().String(), config.LeaderboardLimit)
		if err != nil {
			return err
		}
		if len(users) == 0 {
			return reply(e, "Nobody is walking the minefield yet.")
		}

		totalPages := int(math.Ceil(float64(len(users)) / float64(config.LeaderboardPageSize)))

		return b.Paginator.Create(e.Respond, paginator.Pages{
			ID:      e.ID().String(),
			Creator: e.User().ID,
			PageFunc: func(page int, embed *discord.EmbedBuilder) {
				startIdx := page * config.LeaderboardPageSize
				endIdx := min(startIdx+config.LeaderboardPageSize, len(users))

				var description strings.Builder
				for i, user := range users[startIdx:endIdx] {
					marker := ":skull:"
					if user.IsAlive {
						marker = ":heart:"
					}
					description.WriteString(fmt.Sprintf("%d. %s %s — %d MF$ lifetime\n",
						startIdx+i+1, marker, user.Username, user.LifetimeCurrency))
				}

				embed.
					SetTitle("🏆 Minefield Leaderboard").
					SetDescription(description.String()).
					SetColor(config.GoldColor).
					SetFooter(fmt.Sprintf("Page %d/%d", page+1, totalPages), "")
			},
			Pages:      totalPages,
			ExpireMode: paginator.ExpireModeAfterLastUsage,
		}, false)
	}
}
