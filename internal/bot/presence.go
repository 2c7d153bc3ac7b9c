package bot

import (
	"context"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog/log"

	"github.com/saucebot/saucebot/internal/lang"
)

// StatusUpdater sets the "Playing ..." status. *discordgo.Session satisfies it.
type StatusUpdater interface {
	UpdateGameStatus(idle int, name string) error
}

// QueryCounter reports the total number of lookups served.
type QueryCounter interface {
	TotalQueryCount(ctx context.Context) (int64, error)
}

// RunPresence refreshes the status with the query total immediately and then
// every interval until ctx is done.
func RunPresence(ctx context.Context, s StatusUpdater, counter QueryCounter, tr *lang.Translator, interval time.Duration) {
	update := func() {
		n, err := counter.TotalQueryCount(ctx)
		if err != nil {
			log.Warn().Err(err).Msg("presence: total query count unavailable")
			return
		}
		status := tr.T("Misc", "presence", lang.Params{"count": humanize.Comma(n)})
		if err := s.UpdateGameStatus(0, status); err != nil {
			log.Warn().Err(err).Msg("presence: update failed")
		}
	}

	update()
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			update()
		}
	}
}
