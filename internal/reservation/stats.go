package reservation

import (
	"context"
	"time"

	"kickgym/internal/apperr"
	"kickgym/internal/db"
)

// maxStatsWindow bounds the report range so a single request cannot scan
// the whole table.
const maxStatsWindow = 366 * 24 * time.Hour

type StatsByDay struct {
	Day       string `db:"day" json:"day" example:"2026-11-02"`
	Booked    int    `db:"booked" json:"booked"`
	Cancelled int    `db:"cancelled" json:"cancelled"`
	Completed int    `db:"completed" json:"completed"`
	NoShow    int    `db:"no_show" json:"no_show"`
}

type StatsByTrainer struct {
	TrainerID   int    `db:"trainer_id" json:"trainer_id"`
	TrainerName string `db:"trainer_name" json:"trainer_name"`
	Booked      int    `db:"booked" json:"booked"`
	Cancelled   int    `db:"cancelled" json:"cancelled"`
	NoShow      int    `db:"no_show" json:"no_show"`
}

type StatsReport struct {
	From      time.Time        `json:"from"`
	To        time.Time        `json:"to"`
	ByDay     []StatsByDay     `json:"by_day"`
	ByTrainer []StatsByTrainer `json:"by_trainer"`
}

// StatsByDay buckets reservations by the local calendar day they start on.
func (r *SQLRepository) StatsByDay(ctx context.Context, from, to time.Time, tz string) ([]StatsByDay, error) {
	out := []StatsByDay{}
	err := db.Conn(ctx, r.db).SelectContext(ctx, &out, `
		SELECT
		  TO_CHAR(starts_at AT TIME ZONE $3, 'YYYY-MM-DD')      AS day,
		  COUNT(*)                                              AS booked,
		  COUNT(*) FILTER (WHERE status = 'cancelled')          AS cancelled,
		  COUNT(*) FILTER (WHERE status = 'completed')          AS completed,
		  COUNT(*) FILTER (WHERE status = 'no_show')            AS no_show
		FROM reservations
		WHERE starts_at >= $1 AND starts_at < $2
		GROUP BY day
		ORDER BY day`,
		from, to, tz,
	)
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *SQLRepository) StatsByTrainer(ctx context.Context, from, to time.Time) ([]StatsByTrainer, error) {
	out := []StatsByTrainer{}
	err := db.Conn(ctx, r.db).SelectContext(ctx, &out, `
		SELECT
		  t.id   AS trainer_id,
		  t.name AS trainer_name,
		  COUNT(r.id)                                     AS booked,
		  COUNT(r.id) FILTER (WHERE r.status = 'cancelled') AS cancelled,
		  COUNT(r.id) FILTER (WHERE r.status = 'no_show')   AS no_show
		FROM trainers t
		JOIN reservations r ON r.trainer_id = t.id
		WHERE r.starts_at >= $1 AND r.starts_at < $2
		GROUP BY t.id, t.name
		ORDER BY t.id`,
		from, to,
	)
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *service) Stats(ctx context.Context, from, to time.Time) (*StatsReport, error) {
	if !to.After(from) {
		return nil, apperr.InvalidArgument("to must be after from")
	}
	if to.Sub(from) > maxStatsWindow {
		return nil, apperr.InvalidArgument("stats range must not exceed one year")
	}

	byDay, err := s.repo.StatsByDay(ctx, from, to, s.loc.String())
	if err != nil {
		return nil, db.Wrap(err)
	}
	byTrainer, err := s.repo.StatsByTrainer(ctx, from, to)
	if err != nil {
		return nil, db.Wrap(err)
	}
	return &StatsReport{From: from, To: to, ByDay: byDay, ByTrainer: byTrainer}, nil
}
