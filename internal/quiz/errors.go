package quiz

import "github.com/partyquiz/server/internal/apierr"

func notAcceptingErr() error {
	return apierr.New(apierr.InvalidState, "not accepting answers")
}

func notInGameErr() error {
	return apierr.New(apierr.InvalidState, "player is not in this game")
}

func nopedErr() error {
	return apierr.New(apierr.PlayerNoped, "player is noped this question")
}

func invalidStateErr(msg string) error {
	return apierr.New(apierr.InvalidState, msg)
}
