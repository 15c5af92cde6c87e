package sqlxrepos

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/acanas/swad-core-sub004/core"
	"github.com/acanas/swad-core-sub004/core/hierarchy"
)

const (
	countryColumns     = `id, alpha2, name, www`
	institutionColumns = `id, country_id, status, requester_id, short_name, full_name, www`
	centerColumns      = `center.id, center.institution_id, center.short_name, center.full_name, center.www,
		center.latitude AS "coordinates.latitude", center.longitude AS "coordinates.longitude",
		center.altitude AS "coordinates.altitude"`
	degreeColumns = `id, center_id, short_name, full_name, www`
	roomColumns   = `id, center_id, short_name, full_name, capacity`
)

type hierarchyRepository struct {
	db *sqlx.DB
}

var _ hierarchy.Repository = (*hierarchyRepository)(nil) // interface compliance check

func NewHierarchyRepository(db *sqlx.DB) *hierarchyRepository {
	return &hierarchyRepository{db: db}
}

// Countries

func (repo hierarchyRepository) ListCountries(ctx context.Context, exec ...core.DBExecutor) ([]hierarchy.Country, error) {
	ctys := make([]hierarchy.Country, 0)
	err := sqlx.SelectContext(ctx, getExec(repo.db, exec), &ctys, `SELECT `+countryColumns+` FROM country ORDER BY id`)
	return ctys, errors.Wrap(err, "listing countries")
}

func (repo hierarchyRepository) GetCountry(ctx context.Context, id int64, exec ...core.DBExecutor) (hierarchy.Country, error) {
	var cty hierarchy.Country
	err := sqlx.GetContext(ctx, getExec(repo.db, exec), &cty, `SELECT `+countryColumns+` FROM country WHERE id = $1`, id)
	if err != nil {
		return hierarchy.Country{}, trapNoRowsErr(err, hierarchy.ErrCountryNotFound, "getting country")
	}
	return cty, nil
}

func (repo hierarchyRepository) CreateCountry(ctx context.Context, cty hierarchy.Country, exec ...core.DBExecutor) (hierarchy.Country, error) {
	err := getExec(repo.db, exec).QueryRowxContext(ctx,
		`INSERT INTO country (alpha2, name, www) VALUES ($1, $2, $3) RETURNING id`,
		cty.Alpha2, cty.Name, cty.WWW,
	).Scan(&cty.ID)
	return cty, errors.Wrap(err, "inserting country")
}

func (repo hierarchyRepository) UpdateCountry(ctx context.Context, cty hierarchy.Country, exec ...core.DBExecutor) (hierarchy.Country, error) {
	res, err := getExec(repo.db, exec).ExecContext(ctx,
		`UPDATE country SET alpha2 = $2, name = $3, www = $4 WHERE id = $1`,
		cty.ID, cty.Alpha2, cty.Name, cty.WWW)
	if err != nil {
		return hierarchy.Country{}, errors.Wrap(err, "updating country")
	}
	return cty, checkAffected(res, hierarchy.ErrCountryNotFound, "updating country")
}

func (repo hierarchyRepository) DeleteCountry(ctx context.Context, id int64, exec ...core.DBExecutor) error {
	res, err := getExec(repo.db, exec).ExecContext(ctx, `DELETE FROM country WHERE id = $1`, id)
	if err != nil {
		return errors.Wrap(err, "deleting country")
	}
	return checkAffected(res, hierarchy.ErrCountryNotFound, "deleting country")
}

// Institutions

func (repo hierarchyRepository) ListInstitutions(ctx context.Context, countryID int64, exec ...core.DBExecutor) ([]hierarchy.Institution, error) {
	var w where
	if countryID != 0 {
		w.add("country_id = ?", countryID)
	}
	ext := getExec(repo.db, exec)
	inss := make([]hierarchy.Institution, 0)
	err := sqlx.SelectContext(ctx, ext, &inss, ext.Rebind(`SELECT `+institutionColumns+` FROM institution`+w.String()+` ORDER BY id`), w.args...)
	return inss, errors.Wrap(err, "listing institutions")
}

func (repo hierarchyRepository) GetInstitution(ctx context.Context, id int64, exec ...core.DBExecutor) (hierarchy.Institution, error) {
	var ins hierarchy.Institution
	err := sqlx.GetContext(ctx, getExec(repo.db, exec), &ins, `SELECT `+institutionColumns+` FROM institution WHERE id = $1`, id)
	if err != nil {
		return hierarchy.Institution{}, trapNoRowsErr(err, hierarchy.ErrInstitutionNotFound, "getting institution")
	}
	return ins, nil
}

func (repo hierarchyRepository) CreateInstitution(ctx context.Context, ins hierarchy.Institution, exec ...core.DBExecutor) (hierarchy.Institution, error) {
	err := getExec(repo.db, exec).QueryRowxContext(ctx, `
		INSERT INTO institution (country_id, status, requester_id, short_name, full_name, www)
		VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`,
		ins.CountryID, ins.Status, ins.RequesterID, ins.ShortName, ins.FullName, ins.WWW,
	).Scan(&ins.ID)
	return ins, errors.Wrap(err, "inserting institution")
}

func (repo hierarchyRepository) UpdateInstitution(ctx context.Context, ins hierarchy.Institution, exec ...core.DBExecutor) (hierarchy.Institution, error) {
	res, err := getExec(repo.db, exec).ExecContext(ctx, `
		UPDATE institution SET country_id = $2, status = $3, requester_id = $4, short_name = $5, full_name = $6, www = $7
		WHERE id = $1`,
		ins.ID, ins.CountryID, ins.Status, ins.RequesterID, ins.ShortName, ins.FullName, ins.WWW)
	if err != nil {
		return hierarchy.Institution{}, errors.Wrap(err, "updating institution")
	}
	return ins, checkAffected(res, hierarchy.ErrInstitutionNotFound, "updating institution")
}

func (repo hierarchyRepository) DeleteInstitution(ctx context.Context, id int64, exec ...core.DBExecutor) error {
	res, err := getExec(repo.db, exec).ExecContext(ctx, `DELETE FROM institution WHERE id = $1`, id)
	if err != nil {
		return errors.Wrap(err, "deleting institution")
	}
	return checkAffected(res, hierarchy.ErrInstitutionNotFound, "deleting institution")
}

// Centers

func (repo hierarchyRepository) ListCenters(ctx context.Context, filter hierarchy.CenterFilter, exec ...core.DBExecutor) ([]hierarchy.Center, error) {
	var w where
	if filter.InstitutionID != 0 {
		w.add("center.institution_id = ?", filter.InstitutionID)
	}
	if filter.CountryID != 0 {
		w.add("institution.country_id = ?", filter.CountryID)
	}
	if filter.WithCoordinates {
		w.add("center.latitude <> 0 OR center.longitude <> 0")
	}
	q := `SELECT ` + centerColumns + ` FROM center JOIN institution ON institution.id = center.institution_id` +
		w.String() + ` ORDER BY center.id`

	ext := getExec(repo.db, exec)
	ctrs := make([]hierarchy.Center, 0)
	err := sqlx.SelectContext(ctx, ext, &ctrs, ext.Rebind(q), w.args...)
	return ctrs, errors.Wrap(err, "listing centers")
}

func (repo hierarchyRepository) GetCenter(ctx context.Context, id int64, exec ...core.DBExecutor) (hierarchy.Center, error) {
	var ctr hierarchy.Center
	err := sqlx.GetContext(ctx, getExec(repo.db, exec), &ctr, `SELECT `+centerColumns+` FROM center WHERE center.id = $1`, id)
	if err != nil {
		return hierarchy.Center{}, trapNoRowsErr(err, hierarchy.ErrCenterNotFound, "getting center")
	}
	return ctr, nil
}

func (repo hierarchyRepository) CreateCenter(ctx context.Context, ctr hierarchy.Center, exec ...core.DBExecutor) (hierarchy.Center, error) {
	c := ctr.Coordinates
	err := getExec(repo.db, exec).QueryRowxContext(ctx, `
		INSERT INTO center (institution_id, short_name, full_name, www, latitude, longitude, altitude)
		VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id`,
		ctr.InstitutionID, ctr.ShortName, ctr.FullName, ctr.WWW, c.Latitude, c.Longitude, c.Altitude,
	).Scan(&ctr.ID)
	return ctr, errors.Wrap(err, "inserting center")
}

func (repo hierarchyRepository) UpdateCenter(ctx context.Context, ctr hierarchy.Center, exec ...core.DBExecutor) (hierarchy.Center, error) {
	c := ctr.Coordinates
	res, err := getExec(repo.db, exec).ExecContext(ctx, `
		UPDATE center SET institution_id = $2, short_name = $3, full_name = $4, www = $5,
			latitude = $6, longitude = $7, altitude = $8
		WHERE id = $1`,
		ctr.ID, ctr.InstitutionID, ctr.ShortName, ctr.FullName, ctr.WWW, c.Latitude, c.Longitude, c.Altitude)
	if err != nil {
		return hierarchy.Center{}, errors.Wrap(err, "updating center")
	}
	return ctr, checkAffected(res, hierarchy.ErrCenterNotFound, "updating center")
}

func (repo hierarchyRepository) DeleteCenter(ctx context.Context, id int64, exec ...core.DBExecutor) error {
	res, err := getExec(repo.db, exec).ExecContext(ctx, `DELETE FROM center WHERE id = $1`, id)
	if err != nil {
		return errors.Wrap(err, "deleting center")
	}
	return checkAffected(res, hierarchy.ErrCenterNotFound, "deleting center")
}

// Degrees

func (repo hierarchyRepository) ListDegrees(ctx context.Context, centerID int64, exec ...core.DBExecutor) ([]hierarchy.Degree, error) {
	var w where
	if centerID != 0 {
		w.add("center_id = ?", centerID)
	}
	ext := getExec(repo.db, exec)
	degs := make([]hierarchy.Degree, 0)
	err := sqlx.SelectContext(ctx, ext, &degs, ext.Rebind(`SELECT `+degreeColumns+` FROM degree`+w.String()+` ORDER BY id`), w.args...)
	return degs, errors.Wrap(err, "listing degrees")
}

func (repo hierarchyRepository) GetDegree(ctx context.Context, id int64, exec ...core.DBExecutor) (hierarchy.Degree, error) {
	var deg hierarchy.Degree
	err := sqlx.GetContext(ctx, getExec(repo.db, exec), &deg, `SELECT `+degreeColumns+` FROM degree WHERE id = $1`, id)
	if err != nil {
		return hierarchy.Degree{}, trapNoRowsErr(err, hierarchy.ErrDegreeNotFound, "getting degree")
	}
	return deg, nil
}

func (repo hierarchyRepository) CreateDegree(ctx context.Context, deg hierarchy.Degree, exec ...core.DBExecutor) (hierarchy.Degree, error) {
	err := getExec(repo.db, exec).QueryRowxContext(ctx,
		`INSERT INTO degree (center_id, short_name, full_name, www) VALUES ($1, $2, $3, $4) RETURNING id`,
		deg.CenterID, deg.ShortName, deg.FullName, deg.WWW,
	).Scan(&deg.ID)
	return deg, errors.Wrap(err, "inserting degree")
}

func (repo hierarchyRepository) UpdateDegree(ctx context.Context, deg hierarchy.Degree, exec ...core.DBExecutor) (hierarchy.Degree, error) {
	res, err := getExec(repo.db, exec).ExecContext(ctx,
		`UPDATE degree SET center_id = $2, short_name = $3, full_name = $4, www = $5 WHERE id = $1`,
		deg.ID, deg.CenterID, deg.ShortName, deg.FullName, deg.WWW)
	if err != nil {
		return hierarchy.Degree{}, errors.Wrap(err, "updating degree")
	}
	return deg, checkAffected(res, hierarchy.ErrDegreeNotFound, "updating degree")
}

func (repo hierarchyRepository) DeleteDegree(ctx context.Context, id int64, exec ...core.DBExecutor) error {
	res, err := getExec(repo.db, exec).ExecContext(ctx, `DELETE FROM degree WHERE id = $1`, id)
	if err != nil {
		return errors.Wrap(err, "deleting degree")
	}
	return checkAffected(res, hierarchy.ErrDegreeNotFound, "deleting degree")
}

// Rooms

func (repo hierarchyRepository) ListRooms(ctx context.Context, centerID int64, exec ...core.DBExecutor) ([]hierarchy.Room, error) {
	rooms := make([]hierarchy.Room, 0)
	err := sqlx.SelectContext(ctx, getExec(repo.db, exec), &rooms,
		`SELECT `+roomColumns+` FROM room WHERE center_id = $1 ORDER BY id`, centerID)
	return rooms, errors.Wrap(err, "listing rooms")
}

func (repo hierarchyRepository) GetRoom(ctx context.Context, id int64, exec ...core.DBExecutor) (hierarchy.Room, error) {
	var room hierarchy.Room
	err := sqlx.GetContext(ctx, getExec(repo.db, exec), &room, `SELECT `+roomColumns+` FROM room WHERE id = $1`, id)
	if err != nil {
		return hierarchy.Room{}, trapNoRowsErr(err, hierarchy.ErrRoomNotFound, "getting room")
	}
	return room, nil
}

func (repo hierarchyRepository) CreateRoom(ctx context.Context, room hierarchy.Room, exec ...core.DBExecutor) (hierarchy.Room, error) {
	err := getExec(repo.db, exec).QueryRowxContext(ctx,
		`INSERT INTO room (center_id, short_name, full_name, capacity) VALUES ($1, $2, $3, $4) RETURNING id`,
		room.CenterID, room.ShortName, room.FullName, room.Capacity,
	).Scan(&room.ID)
	return room, errors.Wrap(err, "inserting room")
}

func (repo hierarchyRepository) UpdateRoom(ctx context.Context, room hierarchy.Room, exec ...core.DBExecutor) (hierarchy.Room, error) {
	res, err := getExec(repo.db, exec).ExecContext(ctx,
		`UPDATE room SET short_name = $2, full_name = $3, capacity = $4 WHERE id = $1`,
		room.ID, room.ShortName, room.FullName, room.Capacity)
	if err != nil {
		return hierarchy.Room{}, errors.Wrap(err, "updating room")
	}
	return room, checkAffected(res, hierarchy.ErrRoomNotFound, "updating room")
}

// DeleteRoom removes a room. Groups using it are left without room.
func (repo hierarchyRepository) DeleteRoom(ctx context.Context, id int64, exec ...core.DBExecutor) error {
	res, err := getExec(repo.db, exec).ExecContext(ctx, `DELETE FROM room WHERE id = $1`, id)
	if err != nil {
		return errors.Wrap(err, "deleting room")
	}
	return checkAffected(res, hierarchy.ErrRoomNotFound, "deleting room")
}

var childrenQueries = map[hierarchy.Level]string{
	hierarchy.LevelCountry:     `SELECT COUNT(*) FROM institution WHERE country_id = $1`,
	hierarchy.LevelInstitution: `SELECT COUNT(*) FROM center WHERE institution_id = $1`,
	hierarchy.LevelCenter: `SELECT (SELECT COUNT(*) FROM degree WHERE center_id = $1) +
		(SELECT COUNT(*) FROM room WHERE center_id = $1)`,
	hierarchy.LevelDegree: `SELECT COUNT(*) FROM course WHERE degree_id = $1`,
}

func (repo hierarchyRepository) CountChildren(ctx context.Context, level hierarchy.Level, id int64, exec ...core.DBExecutor) (int, error) {
	q, ok := childrenQueries[level]
	if !ok {
		return 0, nil
	}
	var n int
	if err := sqlx.GetContext(ctx, getExec(repo.db, exec), &n, q, id); err != nil {
		return 0, errors.Wrapf(err, "counting children of %s %d", level, id)
	}
	return n, nil
}
