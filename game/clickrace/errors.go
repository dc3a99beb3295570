package clickrace

import "errors"

// Domain failure codes. The error message is the machine-readable code that
// travels in the response envelope's error field, so these must stay stable.
var (
	ErrNameRequired    = errors.New("nameRequired")
	ErrNameTooLong     = errors.New("nameTooLong")
	ErrAlreadyHosting  = errors.New("alreadyHosting")
	ErrAlreadyExists   = errors.New("alreadyExists")
	ErrRoomNotFound    = errors.New("roomNotFound")
	ErrInvalidPassword = errors.New("invalidPassword")
	ErrAlreadyInRoom   = errors.New("alreadyInRoom")
	ErrRoomFull        = errors.New("roomFull")
	ErrNotInRoom       = errors.New("notInRoom")

	ErrGameInProgress       = errors.New("gameInProgress")
	ErrSpectatorCannotReady = errors.New("spectatorCannotReady")
	ErrGameNotStarted       = errors.New("gameNotStarted")
	ErrSpectatorCannotClick = errors.New("spectatorCannotClick")
	ErrGameDataMissing      = errors.New("gameDataMissing")

	ErrNotHost            = errors.New("notHost")
	ErrGameAlreadyStarted = errors.New("gameAlreadyStarted")
	ErrNotEnoughPlayers   = errors.New("notEnoughPlayers")
	ErrPlayersNotReady    = errors.New("playersNotReady")
)
