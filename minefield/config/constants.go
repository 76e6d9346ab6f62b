package config

import "time"

// Game-rule constants organized by domain. These are the fixed rules of the
// minefield; operational knobs (token, DB, channel name) live in config.toml.

// Odds and penalties
const (
	MinOdds             = 2  // hard floor for current and max odds
	MaxOddsCeiling      = 50 // restore can never push max odds past this
	DeathPenalty        = 2  // max-odds loss on a normal death
	PactDeathPenalty    = 5  // max-odds loss when the victim is in a death pact
	CloseCallMargin     = 5  // odds - roll <= margin counts as a close call
	SacrificeCutDivisor = 5  // provider is paid victim.Currency / 5 per link
)

// Perk costs
const (
	AegisCost      = 90
	DeathPactCost  = 100 // charged to each side
	FortuneCost    = 80
	GuardianCost   = 60
	LifelineCost   = 70
	LuckCostPer    = 25  // per point of current odds
	RestoreCostPer = 175 // per point of max odds
	SacrificeCost  = 75
	SymbioteCost   = 85
)

// Perk charges and cooldowns (cooldowns are counted in messages, not time)
const (
	AegisCharges     = 5
	FortuneCharges   = 5
	LifelineCharges  = 10
	SymbioteCharges  = 5
	AegisCooldown    = 20
	GuardianCooldown = 15
)

// Arena
const (
	ArenaJoinWindow = 60 * time.Second
	ArenaRoundDelay = 3 * time.Second
	ArenaRoundSides = 5 // each round rolls 1..5, a 5 eliminates
)

// Coffer
const (
	CofferTicketBase     = 20 // first ticket price, doubles per ticket owned
	CofferTicketsPerUser = 3  // threshold = this * users who have sent a message
	CofferMinTickets     = 3
	CofferDrawDelay      = 3 * time.Second
)

// Coin flip
const (
	FlipCost         = 50
	FlipWinPayout    = 100
	FlipCooldown     = 5  // messages between flips
	FlipBoomCooldown = 20 // messages after a boom
	FlipBoomChance   = 10 // percent
)

// Discord embed colors
const (
	ErrorColor        = 0xFF0000
	SuccessColor      = 0x00FF00
	InfoColor         = 0x0099FF
	WarningColor      = 0xFFAA00
	GoldColor         = 0xFFD700
	GreyColor         = 0x95A5A6
	EmbedDefaultColor = 0x2B2D31
)

// Database timeouts
const (
	DefaultQueryTimeout = 30 * time.Second
	CommandTimeout      = 5 * time.Second
)

// Leaderboard
const (
	LeaderboardLimit    = 50
	LeaderboardPageSize = 10
)
