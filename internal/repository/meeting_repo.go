package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"syncmeet/internal/domain"
)

// MeetingRepository define el contrato de persistencia para reuniones.
// Los metodos Set*EventID son la capacidad angosta que usa la capa de
// sincronizacion: escriben solo el id de evento, nunca el resto del
// agregado.
type MeetingRepository interface {
	Create(ctx context.Context, m domain.Meeting) error
	GetByID(ctx context.Context, id string) (domain.Meeting, error)
	GetResolved(ctx context.Context, id string) (domain.ResolvedMeeting, error)
	Update(ctx context.Context, m domain.Meeting) error
	Delete(ctx context.Context, id string) error
	ListActiveForUser(ctx context.Context, userID string) ([]domain.ResolvedMeeting, error)
	ListInvitationsForUser(ctx context.Context, userID string) ([]domain.ResolvedMeeting, error)
	ListArchivedForUser(ctx context.Context, userID string) ([]domain.ResolvedMeeting, error)
	UpdateParticipantStatus(ctx context.Context, meetingID, userID, status string) error
	SetOwnerEventID(ctx context.Context, meetingID, eventID string) error
	SetParticipantEventID(ctx context.Context, meetingID, userID, eventID string) error
	ArchivePast(ctx context.Context, now time.Time) (int64, error)
}

// PgMeetingRepository implementa MeetingRepository usando pgxpool.
type PgMeetingRepository struct {
	pool *pgxpool.Pool
}

func NewPgMeetingRepository(pool *pgxpool.Pool) *PgMeetingRepository {
	return &PgMeetingRepository{pool: pool}
}

const meetingColumns = `id, title, coalesce(description, ''), start_time, end_time,
	coalesce(invitation_link, ''), owner_id, archived, coalesce(google_event_id, ''),
	created_at, updated_at`

func (r *PgMeetingRepository) Create(ctx context.Context, m domain.Meeting) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx,
		`INSERT INTO meetings (id, title, description, start_time, end_time, invitation_link, owner_id, archived, google_event_id, created_at, updated_at)
		 VALUES ($1, $2, nullif($3, ''), $4, $5, nullif($6, ''), $7, $8, nullif($9, ''), $10, $10)`,
		m.ID, m.Title, m.Description, m.StartTime, m.EndTime, m.InvitationLink,
		m.OwnerID, m.Archived, m.GoogleEventID, m.CreatedAt,
	)
	if err != nil {
		return err
	}
	if err := insertParticipants(ctx, tx, m.ID, m.Participants); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *PgMeetingRepository) Update(ctx context.Context, m domain.Meeting) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx,
		`UPDATE meetings
		 SET title = $2, description = nullif($3, ''), start_time = $4, end_time = $5,
		     invitation_link = nullif($6, ''), archived = $7, google_event_id = nullif($8, ''),
		     updated_at = now()
		 WHERE id = $1`,
		m.ID, m.Title, m.Description, m.StartTime, m.EndTime, m.InvitationLink,
		m.Archived, m.GoogleEventID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}

	// Reemplazo completo de la lista de participantes.
	if _, err := tx.Exec(ctx, `DELETE FROM meeting_participants WHERE meeting_id = $1`, m.ID); err != nil {
		return err
	}
	if err := insertParticipants(ctx, tx, m.ID, m.Participants); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func insertParticipants(ctx context.Context, tx pgx.Tx, meetingID string, parts []domain.Participant) error {
	for _, p := range parts {
		_, err := tx.Exec(ctx,
			`INSERT INTO meeting_participants (meeting_id, user_id, status, google_event_id)
			 VALUES ($1, $2, $3, nullif($4, ''))`,
			meetingID, p.UserID, p.Status, p.GoogleEventID,
		)
		if err != nil {
			return err
		}
	}
	return nil
}

func (r *PgMeetingRepository) GetByID(ctx context.Context, id string) (domain.Meeting, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+meetingColumns+` FROM meetings WHERE id = $1`, id)
	m, err := scanMeeting(row)
	if err != nil {
		return domain.Meeting{}, err
	}

	rows, err := r.pool.Query(ctx,
		`SELECT user_id, status, coalesce(google_event_id, '')
		 FROM meeting_participants WHERE meeting_id = $1`, id)
	if err != nil {
		return domain.Meeting{}, err
	}
	defer rows.Close()

	for rows.Next() {
		var p domain.Participant
		if err := rows.Scan(&p.UserID, &p.Status, &p.GoogleEventID); err != nil {
			return domain.Meeting{}, err
		}
		m.Participants = append(m.Participants, p)
	}
	return m, rows.Err()
}

func (r *PgMeetingRepository) GetResolved(ctx context.Context, id string) (domain.ResolvedMeeting, error) {
	m, err := r.GetByID(ctx, id)
	if err != nil {
		return domain.ResolvedMeeting{}, err
	}
	return r.resolve(ctx, m)
}

func (r *PgMeetingRepository) resolve(ctx context.Context, m domain.Meeting) (domain.ResolvedMeeting, error) {
	out := domain.ResolvedMeeting{Meeting: m}

	err := r.pool.QueryRow(ctx,
		`SELECT id, display_name, email FROM users WHERE id = $1`, m.OwnerID,
	).Scan(&out.Owner.ID, &out.Owner.DisplayName, &out.Owner.Email)
	if err != nil {
		return domain.ResolvedMeeting{}, err
	}

	rows, err := r.pool.Query(ctx,
		`SELECT u.id, u.display_name, u.email, mp.status, coalesce(mp.google_event_id, '')
		 FROM meeting_participants mp
		 JOIN users u ON u.id = mp.user_id
		 WHERE mp.meeting_id = $1`, m.ID)
	if err != nil {
		return domain.ResolvedMeeting{}, err
	}
	defer rows.Close()

	for rows.Next() {
		var p domain.ResolvedParticipant
		if err := rows.Scan(&p.User.ID, &p.User.DisplayName, &p.User.Email, &p.Status, &p.GoogleEventID); err != nil {
			return domain.ResolvedMeeting{}, err
		}
		out.ResolvedParticipants = append(out.ResolvedParticipants, p)
	}
	return out, rows.Err()
}

func (r *PgMeetingRepository) Delete(ctx context.Context, id string) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM meeting_participants WHERE meeting_id = $1`, id); err != nil {
		return err
	}
	tag, err := tx.Exec(ctx, `DELETE FROM meetings WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return tx.Commit(ctx)
}

func (r *PgMeetingRepository) ListActiveForUser(ctx context.Context, userID string) ([]domain.ResolvedMeeting, error) {
	const query = `
		SELECT ` + meetingColumns + ` FROM meetings m
		WHERE m.archived = false
		  AND (m.owner_id = $1 OR EXISTS (
			SELECT 1 FROM meeting_participants mp
			WHERE mp.meeting_id = m.id AND mp.user_id = $1 AND mp.status = 'accepted'))
		ORDER BY m.start_time ASC
	`
	return r.listResolved(ctx, query, userID)
}

func (r *PgMeetingRepository) ListInvitationsForUser(ctx context.Context, userID string) ([]domain.ResolvedMeeting, error) {
	const query = `
		SELECT ` + meetingColumns + ` FROM meetings m
		WHERE m.archived = false
		  AND EXISTS (
			SELECT 1 FROM meeting_participants mp
			WHERE mp.meeting_id = m.id AND mp.user_id = $1 AND mp.status = 'invited')
		ORDER BY m.start_time ASC
	`
	return r.listResolved(ctx, query, userID)
}

func (r *PgMeetingRepository) ListArchivedForUser(ctx context.Context, userID string) ([]domain.ResolvedMeeting, error) {
	const query = `
		SELECT ` + meetingColumns + ` FROM meetings m
		WHERE m.archived = true
		  AND (m.owner_id = $1 OR EXISTS (
			SELECT 1 FROM meeting_participants mp
			WHERE mp.meeting_id = m.id AND mp.user_id = $1))
		ORDER BY m.start_time DESC
	`
	return r.listResolved(ctx, query, userID)
}

func (r *PgMeetingRepository) listResolved(ctx context.Context, query, userID string) ([]domain.ResolvedMeeting, error) {
	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var meetings []domain.Meeting
	for rows.Next() {
		m, err := scanMeeting(rows)
		if err != nil {
			return nil, err
		}
		meetings = append(meetings, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	out := make([]domain.ResolvedMeeting, 0, len(meetings))
	for _, m := range meetings {
		full, err := r.GetResolved(ctx, m.ID)
		if err != nil {
			return nil, err
		}
		out = append(out, full)
	}
	return out, nil
}

func (r *PgMeetingRepository) UpdateParticipantStatus(ctx context.Context, meetingID, userID, status string) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE meeting_participants SET status = $3
		 WHERE meeting_id = $1 AND user_id = $2`,
		meetingID, userID, status,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *PgMeetingRepository) SetOwnerEventID(ctx context.Context, meetingID, eventID string) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE meetings SET google_event_id = nullif($2, ''), updated_at = now() WHERE id = $1`,
		meetingID, eventID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *PgMeetingRepository) SetParticipantEventID(ctx context.Context, meetingID, userID, eventID string) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE meeting_participants SET google_event_id = nullif($2, '')
		 WHERE meeting_id = $1 AND user_id = $3`,
		meetingID, eventID, userID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// ArchivePast marca como archivadas todas las reuniones no archivadas cuyo
// fin es estrictamente anterior a now. Un solo UPDATE en lote.
func (r *PgMeetingRepository) ArchivePast(ctx context.Context, now time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE meetings SET archived = true, updated_at = now()
		 WHERE archived = false AND end_time < $1`,
		now,
	)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func scanMeeting(row pgx.Row) (domain.Meeting, error) {
	var m domain.Meeting
	err := row.Scan(
		&m.ID,
		&m.Title,
		&m.Description,
		&m.StartTime,
		&m.EndTime,
		&m.InvitationLink,
		&m.OwnerID,
		&m.Archived,
		&m.GoogleEventID,
		&m.CreatedAt,
		&m.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Meeting{}, err
	}
	return m, err
}
