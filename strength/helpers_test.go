package strength

import (
	"io"

	"github.com/rs/zerolog"
)

func zerologNop() zerolog.Logger {
	return zerolog.New(io.Discard)
}
