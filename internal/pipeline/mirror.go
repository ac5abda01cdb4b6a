package pipeline

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"

	"github.com/law-makers/weeklyad/internal/store"
	"github.com/law-makers/weeklyad/pkg/models"
)

// MirrorWeek copies an existing store/week document into m, one row per item
// with the image bytes read from the week folder. week may be a date, which is
// then kept as the row's starting date, or a week key. It returns the number
// of rows inserted.
func MirrorWeek(ctx context.Context, st *store.Store, m Mirror, storeName, week string) (int, error) {
	key, err := store.WeekKey(week)
	if err != nil {
		return 0, newRunError(ErrCodeConfig, storeName, week, "parse week", err)
	}
	startDate, err := store.StartDate(week)
	if err != nil {
		return 0, newRunError(ErrCodeConfig, storeName, week, "parse week", err)
	}

	items, err := st.ReadItems(storeName, key)
	if err != nil {
		return 0, newRunError(ErrCodePersist, storeName, key, "read document", err)
	}

	n := 0
	for _, it := range items {
		if err := ctx.Err(); err != nil {
			return n, err
		}
		row := models.CrawlerResultRow{
			StoreName:            storeName,
			WeeklyAdStartingDate: startDate,
			Product:              it.Name,
			ImageURL:             it.ImageURL,
			Price:                it.Price,
		}
		if path, err := st.ImagePath(storeName, key, it.Image); err == nil {
			if row.Image, err = os.ReadFile(path); err != nil {
				log.Warn().Err(err).Str("file", path).Msg("Mirror row stored without image")
			}
		} else {
			log.Warn().Err(err).Str("store", storeName).Str("item", it.Name).Msg("Mirror row stored without image")
		}

		if _, err := m.InsertResult(ctx, row); err != nil {
			return n, newRunError(ErrCodePersist, storeName, key, fmt.Sprintf("insert %q", it.Name), err)
		}
		n++
	}

	log.Info().Str("store", storeName).Str("week", key).Str("start_date", startDate).Int("rows", n).Msg("Document mirrored")
	return n, nil
}
