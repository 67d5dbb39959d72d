package behaviours

import (
	"github.com/rcarmo/landstalker/internal/codec"
)

// CommandType is the opcode of a behaviour command.
type CommandType uint8

const (
	CmdPause CommandType = iota
	CmdMoveTimed
	CmdTurnCW
	CmdTurnCCW
	CmdTurnNE
	CmdTurnSE
	CmdTurnSW
	CmdTurnNW
	CmdTurnCWNoUpdate
	CmdTurnCCWNoUpdate
	CmdTurnNENoUpdate
	CmdTurnSENoUpdate
	CmdTurnSWNoUpdate
	CmdTurnNWNoUpdate
	CmdMakeVisible
	CmdMakeInvisible
	CmdUnknownB10
	CmdMoveRelative
	CmdGotoCommand
	CmdMoveUntilCollision
	CmdTurnRandom
	CmdTurnRandomNoUpdate
	CmdUnknownB16
	CmdTurnRandomImmediate
	CmdTurnCWImmediate
	CmdTurnCCWImmediate
	CmdTurnNEImmediate
	CmdTurnSEImmediate
	CmdTurnSWImmediate
	CmdTurnNWImmediate
	CmdFreeze
	CmdSlowSpeed
	CmdNormalSpeed
	CmdFastSpeed
	CmdXFastSpeed
	CmdTurn180
	CmdTurn180NoUpdate
	CmdTurn180Immediate
	CmdFollowPlayerWithJump
	CmdJump
	CmdEnableFrameUpdate
	CmdDisableFrameUpdate
	CmdMoveRandomTimed
	CmdLoadSpecialAI
	CmdFollowPlayerNoJump
	CmdUnknownB2D
	CmdShopItem
	CmdUnknownB2F
	CmdMoveUpRelative
	CmdMoveDownRelative
	CmdUnknownB32
	CmdUnknownB33
	CmdPlaybackInput
	CmdResetPlayback
	CmdWaitForCondition
	CmdPause4s
	CmdEnableGravity
	CmdDisableGravity
	CmdMoveUpTimed
	CmdMoveDownTimed
	CmdMoveUpAbsolute
	CmdMoveDownAbsolute
	CmdRemoveSprite
	CmdNudgeUp
	CmdMoveDownUntilCollision
	CmdSetFlag
	CmdWaitForFlagSet
	CmdClearFlag
	CmdHide
	CmdShowWhenCollisionClear
	CmdWaitForFlagClear
	CmdUnknownB47
	CmdSetObjectSpeed
	CmdActivateSwitch
	CmdResetSwitch
	CmdMoveToXYPosImmediate
	CmdMoveToZPosImmediate
	CmdResetToInitialPos
	CmdStartCutscene
	CmdMoveNoClip
	CmdRotatePlayer
	CmdMakeHostile
	CmdMakeNonHostile
	CmdEnableBackwardsMovement
	CmdDisableBackwardsMovement
	CmdSpecialAnimation
	CmdMoveUpToInitPos
	CmdTriggerTileSwap
	CmdUpdateSpriteOrientation
	CmdPrintText
	CmdUnknown5A
	CmdSetTargetPosition
	CmdMoveToTargetPosition
	CmdRepeatBegin
	CmdRepeatEnd
	CmdDecayFlash
	CmdFlashSpinAppear
	CmdFlashSpinDisappear
	CmdPlaySound
	CmdUnknownB63
	CmdStartHiCutscene
	CmdUnknownB65
	CmdUnknownB66
	CmdUnknownB67
	CmdNull
)

// ParamType decides how a parameter is stored and shown.
type ParamType int

const (
	ParamNone ParamType = iota
	ParamUint8
	ParamInt8
	ParamUint16
	ParamLabel
	ParamCoordinate
	ParamLongCoordinate
	ParamFlag
	ParamSound
	ParamLowCutscene
	ParamHighCutscene
)

var paramSizes = map[ParamType]int{
	ParamUint8:          1,
	ParamInt8:           1,
	ParamSound:          1,
	ParamLowCutscene:    1,
	ParamHighCutscene:   1,
	ParamUint16:         2,
	ParamLabel:          1,
	ParamCoordinate:     1,
	ParamLongCoordinate: 2,
	ParamFlag:           2,
}

// Size is the number of bytes the parameter occupies.
func (p ParamType) Size() int {
	return paramSizes[p]
}

// IsCoordinate reports whether values of this type are fractional.
func (p ParamType) IsCoordinate() bool {
	return p == ParamCoordinate || p == ParamLongCoordinate
}

// ParamDef names one parameter of a command.
type ParamDef struct {
	Name string
	Type ParamType
}

// CommandDef describes a command: its opcode, the names it is written as
// (the first is canonical) and its parameters in stored order.
type CommandDef struct {
	ID      CommandType
	Aliases []string
	Params  []ParamDef
}

// Name is the canonical alias.
func (d CommandDef) Name() string {
	return d.Aliases[0]
}

// Size is the encoded size of the command including its opcode.
func (d CommandDef) Size() int {
	n := 1
	for _, p := range d.Params {
		n += p.Type.Size()
	}
	return n
}

var commands = [...]CommandDef{
	CmdPause:                    {CmdPause, []string{"Pause"}, []ParamDef{{"Ticks", ParamUint8}}},
	CmdMoveTimed:                {CmdMoveTimed, []string{"MoveTimed"}, []ParamDef{{"Ticks", ParamUint8}}},
	CmdTurnCW:                   {CmdTurnCW, []string{"TurnCW"}, nil},
	CmdTurnCCW:                  {CmdTurnCCW, []string{"TurnCCW"}, nil},
	CmdTurnNE:                   {CmdTurnNE, []string{"TurnNE"}, nil},
	CmdTurnSE:                   {CmdTurnSE, []string{"TurnSE"}, nil},
	CmdTurnSW:                   {CmdTurnSW, []string{"TurnSW"}, nil},
	CmdTurnNW:                   {CmdTurnNW, []string{"TurnNW"}, nil},
	CmdTurnCWNoUpdate:           {CmdTurnCWNoUpdate, []string{"TurnCWNoUpdate"}, nil},
	CmdTurnCCWNoUpdate:          {CmdTurnCCWNoUpdate, []string{"TurnCCWNoUpdate"}, nil},
	CmdTurnNENoUpdate:           {CmdTurnNENoUpdate, []string{"TurnNENoUpdate"}, nil},
	CmdTurnSENoUpdate:           {CmdTurnSENoUpdate, []string{"TurnSENoUpdate"}, nil},
	CmdTurnSWNoUpdate:           {CmdTurnSWNoUpdate, []string{"TurnSWNoUpdate"}, nil},
	CmdTurnNWNoUpdate:           {CmdTurnNWNoUpdate, []string{"TurnNWNoUpdate"}, nil},
	CmdMakeVisible:              {CmdMakeVisible, []string{"MakeVisible"}, nil},
	CmdMakeInvisible:            {CmdMakeInvisible, []string{"MakeInvisible"}, nil},
	CmdUnknownB10:               {CmdUnknownB10, []string{"UnknownB10"}, []ParamDef{{"Unknown", ParamUint8}}},
	CmdMoveRelative:             {CmdMoveRelative, []string{"MoveRelative"}, []ParamDef{{"Distance", ParamCoordinate}}},
	CmdGotoCommand:              {CmdGotoCommand, []string{"GotoCommand"}, []ParamDef{{"Command", ParamLabel}}},
	CmdMoveUntilCollision:       {CmdMoveUntilCollision, []string{"MoveUntilCollision"}, nil},
	CmdTurnRandom:               {CmdTurnRandom, []string{"TurnRandom"}, nil},
	CmdTurnRandomNoUpdate:       {CmdTurnRandomNoUpdate, []string{"TurnRandomNoUpdate"}, nil},
	CmdUnknownB16:               {CmdUnknownB16, []string{"UnknownB16"}, []ParamDef{{"Unknown", ParamUint8}}},
	CmdTurnRandomImmediate:      {CmdTurnRandomImmediate, []string{"TurnRandomImmediate"}, nil},
	CmdTurnCWImmediate:          {CmdTurnCWImmediate, []string{"TurnCWImmediate"}, nil},
	CmdTurnCCWImmediate:         {CmdTurnCCWImmediate, []string{"TurnCCWImmedate", "TurnCCWImmediate"}, nil},
	CmdTurnNEImmediate:          {CmdTurnNEImmediate, []string{"TurnNEImmediate"}, nil},
	CmdTurnSEImmediate:          {CmdTurnSEImmediate, []string{"TurnSEImmediate"}, nil},
	CmdTurnSWImmediate:          {CmdTurnSWImmediate, []string{"TurnSWImmediate"}, nil},
	CmdTurnNWImmediate:          {CmdTurnNWImmediate, []string{"TurnNWImmediate"}, nil},
	CmdFreeze:                   {CmdFreeze, []string{"Freeze"}, nil},
	CmdSlowSpeed:                {CmdSlowSpeed, []string{"SlowSpeed"}, nil},
	CmdNormalSpeed:              {CmdNormalSpeed, []string{"NormalSpeed"}, nil},
	CmdFastSpeed:                {CmdFastSpeed, []string{"FastSpeed"}, nil},
	CmdXFastSpeed:               {CmdXFastSpeed, []string{"XFastSpeed"}, nil},
	CmdTurn180:                  {CmdTurn180, []string{"Turn180"}, nil},
	CmdTurn180NoUpdate:          {CmdTurn180NoUpdate, []string{"Turn180NoUpdate"}, nil},
	CmdTurn180Immediate:         {CmdTurn180Immediate, []string{"Turn180Immediate"}, nil},
	CmdFollowPlayerWithJump:     {CmdFollowPlayerWithJump, []string{"FollowPlayerWithJump"}, []ParamDef{{"Unknown", ParamUint8}}},
	CmdJump:                     {CmdJump, []string{"Jump"}, nil},
	CmdEnableFrameUpdate:        {CmdEnableFrameUpdate, []string{"EnableFrameUpdate"}, nil},
	CmdDisableFrameUpdate:       {CmdDisableFrameUpdate, []string{"DisableFrameUpdate"}, nil},
	CmdMoveRandomTimed:          {CmdMoveRandomTimed, []string{"MoveRandomTimed"}, []ParamDef{{"Ticks", ParamUint8}, {"BaseTicks", ParamUint8}}},
	CmdLoadSpecialAI:            {CmdLoadSpecialAI, []string{"LoadSpecialAI"}, nil},
	CmdFollowPlayerNoJump:       {CmdFollowPlayerNoJump, []string{"FollowPlayerNoJump"}, []ParamDef{{"Unknown", ParamUint8}}},
	CmdUnknownB2D:               {CmdUnknownB2D, []string{"UnknownB2D"}, nil},
	CmdShopItem:                 {CmdShopItem, []string{"ShopItem"}, nil},
	CmdUnknownB2F:               {CmdUnknownB2F, []string{"UnknownB2F"}, nil},
	CmdMoveUpRelative:           {CmdMoveUpRelative, []string{"MoveUpRelative"}, []ParamDef{{"Distance", ParamCoordinate}}},
	CmdMoveDownRelative:         {CmdMoveDownRelative, []string{"MoveDownRelative"}, []ParamDef{{"Distance", ParamCoordinate}}},
	CmdUnknownB32:               {CmdUnknownB32, []string{"UnknownB32"}, []ParamDef{{"Unknown", ParamUint8}}},
	CmdUnknownB33:               {CmdUnknownB33, []string{"UnknownB33"}, []ParamDef{{"Unknown", ParamUint8}}},
	CmdPlaybackInput:            {CmdPlaybackInput, []string{"PlaybackInput"}, []ParamDef{{"InputScript", ParamUint8}}},
	CmdResetPlayback:            {CmdResetPlayback, []string{"ResetPlayback"}, nil},
	CmdWaitForCondition:         {CmdWaitForCondition, []string{"WaitForCondition"}, []ParamDef{{"Condition", ParamUint8}}},
	CmdPause4s:                  {CmdPause4s, []string{"Pause4s"}, nil},
	CmdEnableGravity:            {CmdEnableGravity, []string{"EnableGravity"}, nil},
	CmdDisableGravity:           {CmdDisableGravity, []string{"DisableGravity"}, nil},
	CmdMoveUpTimed:              {CmdMoveUpTimed, []string{"MoveUpTimed"}, []ParamDef{{"Ticks", ParamUint8}}},
	CmdMoveDownTimed:            {CmdMoveDownTimed, []string{"MoveDownTimed"}, []ParamDef{{"Ticks", ParamUint8}}},
	CmdMoveUpAbsolute:           {CmdMoveUpAbsolute, []string{"MoveUpAbsolute"}, []ParamDef{{"Distance", ParamCoordinate}}},
	CmdMoveDownAbsolute:         {CmdMoveDownAbsolute, []string{"MoveDownAbsolute"}, []ParamDef{{"Distance", ParamCoordinate}}},
	CmdRemoveSprite:             {CmdRemoveSprite, []string{"RemoveSprite"}, nil},
	CmdNudgeUp:                  {CmdNudgeUp, []string{"NudgeUp"}, nil},
	CmdMoveDownUntilCollision:   {CmdMoveDownUntilCollision, []string{"MoveDownUntilCollision"}, nil},
	CmdSetFlag:                  {CmdSetFlag, []string{"SetFlag"}, []ParamDef{{"Flag", ParamFlag}}},
	CmdWaitForFlagSet:           {CmdWaitForFlagSet, []string{"WaitForFlagSet"}, []ParamDef{{"Flag", ParamFlag}}},
	CmdClearFlag:                {CmdClearFlag, []string{"ClearFlag"}, []ParamDef{{"Flag", ParamFlag}}},
	CmdHide:                     {CmdHide, []string{"Hide"}, nil},
	CmdShowWhenCollisionClear:   {CmdShowWhenCollisionClear, []string{"ShowWhenCollisionClear"}, nil},
	CmdWaitForFlagClear:         {CmdWaitForFlagClear, []string{"WaitForFlagClear"}, []ParamDef{{"Flag", ParamFlag}}},
	CmdUnknownB47:               {CmdUnknownB47, []string{"UnknownB47"}, []ParamDef{{"Unknown", ParamUint8}}},
	CmdSetObjectSpeed:           {CmdSetObjectSpeed, []string{"SetObjectSpeed"}, []ParamDef{{"Unknown1", ParamUint8}, {"Unknown2", ParamUint8}}},
	CmdActivateSwitch:           {CmdActivateSwitch, []string{"ActivateSwitch"}, nil},
	CmdResetSwitch:              {CmdResetSwitch, []string{"ResetSwitch"}, nil},
	CmdMoveToXYPosImmediate:     {CmdMoveToXYPosImmediate, []string{"MoveToXYPosImmedite", "MoveToXYPosImmediate"}, []ParamDef{{"X", ParamCoordinate}, {"Y", ParamCoordinate}}},
	CmdMoveToZPosImmediate:      {CmdMoveToZPosImmediate, []string{"MoveToZPosImmediate"}, []ParamDef{{"Z", ParamCoordinate}}},
	CmdResetToInitialPos:        {CmdResetToInitialPos, []string{"ResetToInitialPos"}, nil},
	CmdStartCutscene:            {CmdStartCutscene, []string{"StartCutscene"}, []ParamDef{{"Cutscene", ParamLowCutscene}}},
	CmdMoveNoClip:               {CmdMoveNoClip, []string{"MoveNoClip"}, []ParamDef{{"Unknown", ParamUint8}}},
	CmdRotatePlayer:             {CmdRotatePlayer, []string{"RotatePlayer"}, []ParamDef{{"Unknown", ParamUint8}}},
	CmdMakeHostile:              {CmdMakeHostile, []string{"MakeHostile"}, nil},
	CmdMakeNonHostile:           {CmdMakeNonHostile, []string{"MakeNonHostile"}, nil},
	CmdEnableBackwardsMovement:  {CmdEnableBackwardsMovement, []string{"EnableBackwardsMovement"}, nil},
	CmdDisableBackwardsMovement: {CmdDisableBackwardsMovement, []string{"DisableBackwardsMovement"}, nil},
	CmdSpecialAnimation:         {CmdSpecialAnimation, []string{"SpecialAnimation"}, []ParamDef{{"Unknown", ParamUint8}}},
	CmdMoveUpToInitPos:          {CmdMoveUpToInitPos, []string{"MoveUpToInitPos"}, nil},
	CmdTriggerTileSwap:          {CmdTriggerTileSwap, []string{"TriggerTileSwap"}, []ParamDef{{"Swap", ParamUint8}}},
	CmdUpdateSpriteOrientation:  {CmdUpdateSpriteOrientation, []string{"UpdateSpriteOrientation"}, nil},
	CmdPrintText:                {CmdPrintText, []string{"PrintText"}, []ParamDef{{"String", ParamUint16}}},
	CmdUnknown5A:                {CmdUnknown5A, []string{"Unknown5A"}, []ParamDef{{"Unknown", ParamUint8}}},
	CmdSetTargetPosition:        {CmdSetTargetPosition, []string{"SetTargetPosition"}, []ParamDef{{"X", ParamLongCoordinate}, {"Y", ParamLongCoordinate}}},
	CmdMoveToTargetPosition:     {CmdMoveToTargetPosition, []string{"MoveToTargetPosition"}, nil},
	CmdRepeatBegin:              {CmdRepeatBegin, []string{"RepeatBegin"}, []ParamDef{{"Repetitions", ParamUint8}}},
	CmdRepeatEnd:                {CmdRepeatEnd, []string{"RepeatEnd"}, nil},
	CmdDecayFlash:               {CmdDecayFlash, []string{"DecayFlash"}, []ParamDef{{"Ticks", ParamUint8}}},
	CmdFlashSpinAppear:          {CmdFlashSpinAppear, []string{"FlashSpinAppear"}, []ParamDef{{"Ticks", ParamUint8}}},
	CmdFlashSpinDisappear:       {CmdFlashSpinDisappear, []string{"FlashSpinDisappear"}, []ParamDef{{"Ticks", ParamUint8}}},
	CmdPlaySound:                {CmdPlaySound, []string{"PlaySound"}, []ParamDef{{"Sound", ParamSound}}},
	CmdUnknownB63:               {CmdUnknownB63, []string{"UnknownB63"}, []ParamDef{{"Unknown", ParamUint8}}},
	CmdStartHiCutscene:          {CmdStartHiCutscene, []string{"StartHiCutscene"}, []ParamDef{{"Cutscene", ParamHighCutscene}}},
	CmdUnknownB65:               {CmdUnknownB65, []string{"UnknownB65"}, []ParamDef{{"Unknown", ParamUint8}}},
	CmdUnknownB66:               {CmdUnknownB66, []string{"UnknownB66"}, []ParamDef{{"Unknown", ParamUint8}}},
	CmdUnknownB67:               {CmdUnknownB67, []string{"UnknownB67"}, nil},
	CmdNull:                     {CmdNull, []string{"Null"}, nil},
}

var commandsByName = func() map[string]CommandType {
	m := make(map[string]CommandType)
	for _, c := range commands {
		for _, a := range c.Aliases {
			m[a] = c.ID
		}
	}
	return m
}()

// Lookup returns the definition of an opcode.
func Lookup(id CommandType) (CommandDef, error) {
	if int(id) >= len(commands) {
		return CommandDef{}, codec.Malformed("behaviour", codec.ErrUnknownCommand, "opcode 0x%02X", uint8(id))
	}
	return commands[id], nil
}

// LookupName returns the definition of a command by any of its aliases.
func LookupName(name string) (CommandDef, error) {
	id, ok := commandsByName[name]
	if !ok {
		return CommandDef{}, codec.Malformed("behaviour", codec.ErrUnknownCommand, "%q", name)
	}
	return commands[id], nil
}

// CommandCount is the number of defined opcodes.
func CommandCount() int {
	return len(commands)
}

func (t CommandType) String() string {
	if int(t) < len(commands) {
		return commands[t].Name()
	}
	return "Unknown"
}
