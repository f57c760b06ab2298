package game

const (
	// DefaultTickRate is the amount of simulation ticks per second.
	DefaultTickRate = 50

	// Gravity is the downwards acceleration of entities, in blocks per second squared.
	Gravity = float32(32)
	// TerminalVelocity is the maximum falling speed of an entity, in blocks per second.
	TerminalVelocity = float32(78.4)
	// JumpVelocity is the upwards velocity applied when an entity jumps.
	JumpVelocity = float32(8.4)
	// DefaultAirFriction and DefaultBlockFriction are the velocity retained per FrictionTickRate tick.
	DefaultAirFriction   = float32(0.91)
	DefaultBlockFriction = float32(0.6)
	FrictionTickRate     = float32(20)
	// MovementAcceleration is the horizontal acceleration applied by movement input, in blocks per second
	// squared.
	MovementAcceleration = float32(60)
	AirAcceleration      = float32(12)

	DefaultPlayerHeightOffset = float32(1.62)
	PlayerWidth               = float32(0.6)
	PlayerHeight              = float32(1.8)

	DefaultHealth   = float32(20)
	SurvivalReach   = float32(2.9)
	JumpDelayTicks  = 10
	StunTicks       = 10
	CombatLerpSteps = 10
)
