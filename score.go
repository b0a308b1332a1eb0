package catacombs

import "math"

// Score thresholds with one-shot listeners.
const (
	ScoreThresholdS     = 270
	ScoreThresholdSPlus = 300
)

// Fraction of secrets needed for full secret score. Floors not listed need
// all secrets.
var floorSecrets = map[string]float64{
	"F1": 0.3,
	"F2": 0.4,
	"F3": 0.5,
	"F4": 0.6,
	"F5": 0.7,
	"F6": 0.85,
}

// Seconds of boss fight excluded from the speed score.
var floorTimes = map[string]float64{
	"F3": 120,
	"F4": 240,
	"F5": 120,
	"F6": 240,
	"F7": 360,
	"M1": 0,
	"M2": 0,
	"M3": 0,
	"M4": 0,
	"M5": 0,
	"M6": 120,
	"M7": 360,
}

// SecretsPercentNeeded returns the fraction of secrets needed on a floor.
func SecretsPercentNeeded(floor string) float64 {
	if v, ok := floorSecrets[floor]; ok {
		return v
	}
	return 1
}

// FloorTimeOffset returns the seconds excluded from the speed score on a
// floor.
func FloorTimeOffset(floor string) float64 {
	return floorTimes[floor]
}

// ScoreInput is everything the score depends on.
type ScoreInput struct {
	Floor                string
	SecretsFound         int
	SecretsFoundPercent  float64
	SecretsPercentNeeded float64
	ClearedPercent       float64
	CompletedRooms       int
	PuzzleCount          int
	PuzzlesDone          int
	TeamDeaths           int
	Crypts               int
	DungeonSeconds       float64
	BloodDone            bool
	InBoss               bool
	SpiritPet            bool
	MimicDead            bool
	Paul                 bool
}

// ScoreData is the score breakdown of a run.
type ScoreData struct {
	TotalSecrets     int     `json:"totalSecrets"`
	SecretsRemaining int     `json:"secretsRemaining"`
	TotalRooms       int     `json:"totalRooms"`
	DeathPenalty     int     `json:"deathPenalty"`
	CompletionRatio  float64 `json:"completionRatio"`
	AdjustedRooms    int     `json:"adjustedRooms"`
	RoomsScore       float64 `json:"roomsScore"`
	SkillScore       int     `json:"skillScore"`
	SecretsScore     float64 `json:"secretsScore"`
	ExploreScore     int     `json:"exploreScore"`
	SpeedScore       float64 `json:"speedScore"`
	BonusScore       int     `json:"bonusScore"`
	Score            int     `json:"score"`
	MaxSecrets       int     `json:"maxSecrets"`
	MinSecrets       int     `json:"minSecrets"`
}

func clamp(v, lo, hi float64) float64 {
	return math.Min(math.Max(v, lo), hi)
}

// finiteOr returns v unless it is NaN or infinite.
func finiteOr(v, fallback float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) || v == 0 {
		return fallback
	}
	return v
}

// SpeedScore returns the speed score for the seconds spent outside the boss
// allowance.
func SpeedScore(totalTime float64) float64 {
	switch {
	case totalTime < 480:
		return 100
	case totalTime <= 600:
		return 140 - totalTime/12
	case totalTime <= 840:
		return 115 - totalTime/24
	case totalTime <= 1140:
		return 108 - totalTime/30
	case totalTime <= 3940:
		return 98.5 - totalTime/40
	}
	return 0
}

// CalculateScore computes the score breakdown. It is a pure function of in.
func CalculateScore(in ScoreInput) ScoreData {
	var sd ScoreData
	needed := in.SecretsPercentNeeded
	if needed <= 0 {
		needed = 1
	}

	sd.TotalSecrets = int(finiteOr(math.Floor(100/in.SecretsFoundPercent*float64(in.SecretsFound)+0.5), 0))
	sd.SecretsRemaining = sd.TotalSecrets - in.SecretsFound
	sd.TotalRooms = int(finiteOr(math.Floor(100/in.ClearedPercent*float64(in.CompletedRooms)+0.4), RoomCellCount))

	sd.AdjustedRooms = in.CompletedRooms
	if !in.BloodDone || !in.InBoss {
		sd.AdjustedRooms++
	}
	if in.CompletedRooms <= sd.TotalRooms-1 && !in.BloodDone {
		sd.AdjustedRooms++
	}

	sd.DeathPenalty = in.TeamDeaths * -2
	if in.SpiritPet && in.TeamDeaths > 0 {
		sd.DeathPenalty++
	}

	sd.CompletionRatio = float64(sd.AdjustedRooms) / float64(sd.TotalRooms)
	sd.RoomsScore = clamp(80*sd.CompletionRatio, 0, 80)

	missingPuzzles := in.PuzzleCount - in.PuzzlesDone
	sd.SkillScore = int(clamp(math.Floor(20+sd.RoomsScore-10*float64(missingPuzzles)+float64(sd.DeathPenalty)), 20, 100))

	sd.SecretsScore = clamp(40*((in.SecretsFoundPercent/100)/needed), 0, 40)
	if in.ClearedPercent != 0 {
		sd.ExploreScore = int(clamp(math.Floor(60*sd.CompletionRatio+sd.SecretsScore), 0, 100))
	}

	crypts := in.Crypts
	if crypts > 5 {
		crypts = 5
	}
	sd.BonusScore = crypts
	if in.MimicDead {
		sd.BonusScore += 2
	}
	if in.Paul {
		sd.BonusScore += 10
	}

	sd.SpeedScore = SpeedScore(in.DungeonSeconds - FloorTimeOffset(in.Floor))

	sd.Score = sd.SkillScore + sd.ExploreScore + int(math.Floor(sd.SpeedScore)) + sd.BonusScore
	sd.MaxSecrets = int(math.Ceil(float64(sd.TotalSecrets) * needed))
	sd.MinSecrets = int(math.Floor(float64(sd.MaxSecrets) * (40 - float64(sd.BonusScore) + float64(sd.DeathPenalty)) / 40))
	return sd
}
