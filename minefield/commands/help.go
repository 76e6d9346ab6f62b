package commands

import (
	"fmt"
	"runtime"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/handler"

	"github.com/minefieldbot/minefield/minefield"
	"github.com/minefieldbot/minefield/minefield/config"
)

var Help = discord.SlashCommandCreate{
	Name:        "help",
	Description: "❓ How the minefield works",
}

var Info = discord.SlashCommandCreate{
	Name:        "info",
	Description: "ℹ️ Bot version and build info",
}

func HelpHandler(b *minefield.Bot) handler.CommandHandler {
	return func(e *handler.CommandEvent) error {
		embed := discord.NewEmbedBuilder().
			SetTitle("💥 Welcome to the Minefield").
			SetColor(config.InfoColor).
			SetDescription("Every message you send in the minefield channel rolls against your odds. "+
				"Hit a mine and you die, losing your voice in the channel until you revive or someone saves you. "+
				"Survive and your streak builds, paying out MF$ every message.").
			AddField("Solo perks",
				"`/aegis` — skip the next 5 rolls entirely\n"+
					"`/fortune` — double earnings for 5 messages\n"+
					"`/guardian` — negate your next mine\n"+
					"`/luck` — buy your current odds back toward your ceiling\n"+
					"`/restore` — permanently raise your odds ceiling", false).
			AddField("Linked perks",
				"`/lifeline` — revive a dead user and shield them\n"+
					"`/sacrifice` — step in front of someone's next mine\n"+
					"`/symbiote` — siphon a cut of someone's earnings\n"+
					"`/deathpact` — bind your fates together", false).
			AddField("Events",
				"`/arena` — start an elimination tournament\n"+
					"`/join` — enter an open arena\n"+
					"`/tickets` — buy into Charon's Coffer\n"+
					"`/flip` — gamble on a coin flip", false).
			AddField("Stats",
				"`/status` `/balance` `/odds` `/maxodds` `/streak` `/messages` `/perks` "+
					"`/cooldowns` `/users` `/deadusers` `/leaderboard`", false).
			AddField("Janitor",
				"`/reset` `/revive` `/setbalance` `/setodds` `/setmaxodds` `/immune`", false).
			Build()
		return replyEmbed(e, embed)
	}
}

func InfoHandler(b *minefield.Bot) handler.CommandHandler {
	return func(e *handler.CommandEvent) error {
		embed := discord.NewEmbedBuilder().
			SetTitle("Minefield").
			SetColor(config.EmbedDefaultColor).
			AddField("Version", b.Version, true).
			AddField("Commit", b.Commit, true).
			AddField("Go", runtime.Version(), true).
			AddField("Servers", fmt.Sprintf("%d", b.Client.Caches().GuildsLen()), true).
			Build()
		return replyEmbed(e, embed)
	}
}
