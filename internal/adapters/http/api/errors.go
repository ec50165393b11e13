package api

import "errors"

// ErrBadRequest marks request bodies the API cannot turn into a game.
var ErrBadRequest = errors.New("bad request")
