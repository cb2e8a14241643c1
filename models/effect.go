package models

// PowerUp is both a held power-up and the type of the effect it produces.
type PowerUp string

const (
	PowerUpInk    PowerUp = "INK"
	PowerUpFreeze PowerUp = "FREEZE"
	PowerUpShake  PowerUp = "SHAKE"
	PowerUpSwap   PowerUp = "SWAP"
	PowerUpFlash  PowerUp = "FLASH"
	PowerUpShield PowerUp = "SHIELD"
	PowerUpBoost  PowerUp = "BOOST"
)

type Effect struct {
	ID        string  `json:"id"`
	Type      PowerUp `json:"type"`
	ExpiresAt int64   `json:"expiresAt"`
	Sender    string  `json:"sender"`
	TargetID  string  `json:"targetId"`
}

type ChaosType string

const (
	ChaosMirror   ChaosType = "MIRROR"
	ChaosRain     ChaosType = "RAIN"
	ChaosDouble   ChaosType = "DOUBLE"
	ChaosBlackout ChaosType = "BLACKOUT"
	ChaosGravity  ChaosType = "GRAVITY"
	ChaosGlitch   ChaosType = "GLITCH"
	ChaosMidas    ChaosType = "MIDAS"
	ChaosBomb     ChaosType = "BOMB"
)

type ChaosEvent struct {
	Type      ChaosType `json:"type"`
	ExpiresAt int64     `json:"expiresAt"`
	Holder    string    `json:"holder,omitempty"`
}

type Reaction struct {
	Type      string `json:"type"`
	ID        string `json:"id"`
	Timestamp int64  `json:"timestamp"`
	Sender    string `json:"sender"`
}
