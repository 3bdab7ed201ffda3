package repository

import (
	"database/sql"
	"time"

	"carwash/internal/carwash"
	"carwash/internal/db"

	"github.com/lib/pq"
)

const reservationColumns = `id, user_id, vehicle_plate_number, location, state, services, private, mpv,
	time_requirement, start_date, end_date, comment, carwash_comment, created_by_id, created_on,
	outlook_event_id, payment_session_id`

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func optional(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

func toRow(r *carwash.Reservation) db.Reservation {
	services := make(pq.Int64Array, len(r.Services))
	for i, s := range r.Services {
		services[i] = int64(s)
	}
	return db.Reservation{
		ID:                 r.ID,
		UserID:             r.UserID,
		VehiclePlateNumber: r.VehiclePlateNumber,
		Location:           nullString(r.Location),
		State:              int(r.State),
		Services:           services,
		Private:            r.Private,
		Mpv:                r.Mpv,
		TimeRequirement:    r.TimeRequirement,
		StartDate:          r.StartDate,
		EndDate:            sql.NullTime{Time: r.EndDate, Valid: !r.EndDate.IsZero()},
		Comment:            nullString(r.Comment),
		CarwashComment:     nullString(r.CarwashComment),
		CreatedByID:        r.CreatedByID,
		CreatedOn:          r.CreatedOn,
		OutlookEventID:     nullString(r.OutlookEventID),
		PaymentSessionID:   nullString(r.PaymentSessionID),
	}
}

func fromRow(row db.Reservation) carwash.Reservation {
	services := make([]carwash.ServiceType, len(row.Services))
	for i, s := range row.Services {
		services[i] = carwash.ServiceType(s)
	}
	end := row.EndDate.Time
	if !row.EndDate.Valid {
		end = row.StartDate.Add(time.Duration(row.TimeRequirement) * time.Minute)
	}
	return carwash.Reservation{
		ID:                 row.ID,
		UserID:             row.UserID,
		VehiclePlateNumber: row.VehiclePlateNumber,
		Location:           row.Location.String,
		Services:           services,
		Private:            row.Private,
		Mpv:                row.Mpv,
		TimeRequirement:    row.TimeRequirement,
		StartDate:          row.StartDate,
		EndDate:            end,
		State:              carwash.State(row.State),
		Comment:            row.Comment.String,
		CarwashComment:     row.CarwashComment.String,
		CreatedByID:        row.CreatedByID,
		CreatedOn:          row.CreatedOn,
		OutlookEventID:     row.OutlookEventID.String,
		PaymentSessionID:   row.PaymentSessionID.String,
	}
}

func fromRows(rows []db.Reservation) []carwash.Reservation {
	out := make([]carwash.Reservation, len(rows))
	for i, row := range rows {
		out[i] = fromRow(row)
	}
	return out
}

func blockerFromRow(row db.Blocker) carwash.Blocker {
	b := carwash.Blocker{ID: row.ID, StartDate: row.StartDate, Comment: row.Comment.String}
	if row.EndDate.Valid {
		end := row.EndDate.Time
		b.EndDate = &end
	}
	return b
}

func userFromRow(row db.User) *User {
	return &User{
		ID:                  row.ID,
		Email:               row.Email,
		FullName:            row.FullName,
		Phone:               row.Phone.String,
		Company:             row.Company.String,
		PasswordHash:        row.PasswordHash,
		IsCarwashAdmin:      row.IsCarwashAdmin,
		NotificationChannel: row.NotificationChannel,
		CreatedAt:           row.CreatedAt,
	}
}

func blockerToRow(b *carwash.Blocker) db.Blocker {
	row := db.Blocker{ID: b.ID, StartDate: b.StartDate, Comment: nullString(b.Comment)}
	if b.EndDate != nil {
		row.EndDate = sql.NullTime{Time: *b.EndDate, Valid: true}
	}
	return row
}
