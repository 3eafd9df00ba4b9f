package bot

import "github.com/bwmarrin/discordgo"

var staffPermissions int64 = discordgo.PermissionManageMessages

// ApplicationCommands описывает дерево команды /qotw.
func ApplicationCommands() []*discordgo.ApplicationCommand {
	return []*discordgo.ApplicationCommand{
		{
			Name:                     "qotw",
			Description:              "Question of the Week administration",
			DefaultMemberPermissions: &staffPermissions,
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionSubCommandGroup,
					Name:        "question-queue",
					Description: "Manage the question queue",
					Options: []*discordgo.ApplicationCommandOption{
						{Type: discordgo.ApplicationCommandOptionSubCommand, Name: "add", Description: "Add a question to the queue"},
						{Type: discordgo.ApplicationCommandOptionSubCommand, Name: "list", Description: "Show pending questions in pop order"},
					},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "activate",
					Description: "Publish the next question from the queue",
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommandGroup,
					Name:        "submissions",
					Description: "Review the submission in this thread",
					Options: []*discordgo.ApplicationCommandOption{
						{
							Type:        discordgo.ApplicationCommandOptionSubCommand,
							Name:        "accept",
							Description: "Accept the submission and award a point",
							Options: []*discordgo.ApplicationCommandOption{
								{Type: discordgo.ApplicationCommandOptionBoolean, Name: "best-answer", Description: "Mark as one of the best answers"},
							},
						},
						{Type: discordgo.ApplicationCommandOptionSubCommand, Name: "decline", Description: "Decline the submission"},
					},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "leaderboard",
					Description: "Show the QOTW leaderboard",
				},
			},
		},
	}
}
