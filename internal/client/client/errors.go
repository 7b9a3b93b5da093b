package client

import (
	"errors"
	"fmt"

	"github.com/dmitrijs2005/boilerbudget/internal/common"
)

var (
	ErrUnavailable           = errors.New("server unavailable")
	ErrUnauthorized          = fmt.Errorf("client: %w", common.ErrorUnauthorized)
	ErrNotFound              = fmt.Errorf("client: %w", common.ErrorNotFound)
	ErrLocalDataNotAvailable = errors.New("local data unavailable")
)
