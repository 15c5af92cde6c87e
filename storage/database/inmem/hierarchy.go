package inmemdb

import (
	"context"
	"sort"

	"github.com/acanas/swad-core-sub004/core"
	"github.com/acanas/swad-core-sub004/core/hierarchy"
)

type hierarchyRepository struct {
	db *DB
}

var _ hierarchy.Repository = (*hierarchyRepository)(nil) // interface compliance check

func NewHierarchyRepository(db *DB) *hierarchyRepository {
	return &hierarchyRepository{db: db}
}

func sortedByID[V any](m map[int64]V, keep func(V) bool) []V {
	ids := make([]int64, 0, len(m))
	for id, v := range m {
		if keep(v) {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	out := make([]V, 0, len(ids))
	for _, id := range ids {
		out = append(out, m[id])
	}
	return out
}

// Countries

func (repo *hierarchyRepository) ListCountries(ctx context.Context, exec ...core.DBExecutor) (ctys []hierarchy.Country, err error) {
	repo.db.read(func(t *tables) {
		ctys = sortedByID(t.countries, func(hierarchy.Country) bool { return true })
	})
	return ctys, nil
}

func (repo *hierarchyRepository) GetCountry(ctx context.Context, id int64, exec ...core.DBExecutor) (cty hierarchy.Country, err error) {
	err = hierarchy.ErrCountryNotFound
	repo.db.read(func(t *tables) {
		if c, ok := t.countries[id]; ok {
			cty, err = c, nil
		}
	})
	return cty, err
}

func (repo *hierarchyRepository) CreateCountry(ctx context.Context, cty hierarchy.Country, exec ...core.DBExecutor) (hierarchy.Country, error) {
	repo.db.write(exec, func(t *tables) {
		cty.ID = t.nextID()
		t.countries[cty.ID] = cty
	})
	return cty, nil
}

func (repo *hierarchyRepository) UpdateCountry(ctx context.Context, cty hierarchy.Country, exec ...core.DBExecutor) (hierarchy.Country, error) {
	err := hierarchy.ErrCountryNotFound
	repo.db.write(exec, func(t *tables) {
		if _, ok := t.countries[cty.ID]; ok {
			t.countries[cty.ID] = cty
			err = nil
		}
	})
	return cty, err
}

func (repo *hierarchyRepository) DeleteCountry(ctx context.Context, id int64, exec ...core.DBExecutor) error {
	repo.db.write(exec, func(t *tables) { delete(t.countries, id) })
	return nil
}

// Institutions

func (repo *hierarchyRepository) ListInstitutions(ctx context.Context, countryID int64, exec ...core.DBExecutor) (inss []hierarchy.Institution, err error) {
	repo.db.read(func(t *tables) {
		inss = sortedByID(t.institutions, func(ins hierarchy.Institution) bool {
			return countryID == 0 || ins.CountryID == countryID
		})
	})
	return inss, nil
}

func (repo *hierarchyRepository) GetInstitution(ctx context.Context, id int64, exec ...core.DBExecutor) (ins hierarchy.Institution, err error) {
	err = hierarchy.ErrInstitutionNotFound
	repo.db.read(func(t *tables) {
		if i, ok := t.institutions[id]; ok {
			ins, err = i, nil
		}
	})
	return ins, err
}

func (repo *hierarchyRepository) CreateInstitution(ctx context.Context, ins hierarchy.Institution, exec ...core.DBExecutor) (hierarchy.Institution, error) {
	repo.db.write(exec, func(t *tables) {
		ins.ID = t.nextID()
		t.institutions[ins.ID] = ins
	})
	return ins, nil
}

func (repo *hierarchyRepository) UpdateInstitution(ctx context.Context, ins hierarchy.Institution, exec ...core.DBExecutor) (hierarchy.Institution, error) {
	err := hierarchy.ErrInstitutionNotFound
	repo.db.write(exec, func(t *tables) {
		if _, ok := t.institutions[ins.ID]; ok {
			t.institutions[ins.ID] = ins
			err = nil
		}
	})
	return ins, err
}

func (repo *hierarchyRepository) DeleteInstitution(ctx context.Context, id int64, exec ...core.DBExecutor) error {
	repo.db.write(exec, func(t *tables) { delete(t.institutions, id) })
	return nil
}

// Centers

func (repo *hierarchyRepository) ListCenters(ctx context.Context, filter hierarchy.CenterFilter, exec ...core.DBExecutor) (ctrs []hierarchy.Center, err error) {
	repo.db.read(func(t *tables) {
		ctrs = sortedByID(t.centers, func(ctr hierarchy.Center) bool {
			if filter.InstitutionID != 0 && ctr.InstitutionID != filter.InstitutionID {
				return false
			}
			if filter.CountryID != 0 && t.institutions[ctr.InstitutionID].CountryID != filter.CountryID {
				return false
			}
			return !filter.WithCoordinates || ctr.Coordinates.IsSet()
		})
	})
	return ctrs, nil
}

func (repo *hierarchyRepository) GetCenter(ctx context.Context, id int64, exec ...core.DBExecutor) (ctr hierarchy.Center, err error) {
	err = hierarchy.ErrCenterNotFound
	repo.db.read(func(t *tables) {
		if c, ok := t.centers[id]; ok {
			ctr, err = c, nil
		}
	})
	return ctr, err
}

func (repo *hierarchyRepository) CreateCenter(ctx context.Context, ctr hierarchy.Center, exec ...core.DBExecutor) (hierarchy.Center, error) {
	repo.db.write(exec, func(t *tables) {
		ctr.ID = t.nextID()
		t.centers[ctr.ID] = ctr
	})
	return ctr, nil
}

func (repo *hierarchyRepository) UpdateCenter(ctx context.Context, ctr hierarchy.Center, exec ...core.DBExecutor) (hierarchy.Center, error) {
	err := hierarchy.ErrCenterNotFound
	repo.db.write(exec, func(t *tables) {
		if _, ok := t.centers[ctr.ID]; ok {
			t.centers[ctr.ID] = ctr
			err = nil
		}
	})
	return ctr, err
}

func (repo *hierarchyRepository) DeleteCenter(ctx context.Context, id int64, exec ...core.DBExecutor) error {
	repo.db.write(exec, func(t *tables) { delete(t.centers, id) })
	return nil
}

// Degrees

func (repo *hierarchyRepository) ListDegrees(ctx context.Context, centerID int64, exec ...core.DBExecutor) (degs []hierarchy.Degree, err error) {
	repo.db.read(func(t *tables) {
		degs = sortedByID(t.degrees, func(deg hierarchy.Degree) bool { return deg.CenterID == centerID })
	})
	return degs, nil
}

func (repo *hierarchyRepository) GetDegree(ctx context.Context, id int64, exec ...core.DBExecutor) (deg hierarchy.Degree, err error) {
	err = hierarchy.ErrDegreeNotFound
	repo.db.read(func(t *tables) {
		if d, ok := t.degrees[id]; ok {
			deg, err = d, nil
		}
	})
	return deg, err
}

func (repo *hierarchyRepository) CreateDegree(ctx context.Context, deg hierarchy.Degree, exec ...core.DBExecutor) (hierarchy.Degree, error) {
	repo.db.write(exec, func(t *tables) {
		deg.ID = t.nextID()
		t.degrees[deg.ID] = deg
	})
	return deg, nil
}

func (repo *hierarchyRepository) UpdateDegree(ctx context.Context, deg hierarchy.Degree, exec ...core.DBExecutor) (hierarchy.Degree, error) {
	err := hierarchy.ErrDegreeNotFound
	repo.db.write(exec, func(t *tables) {
		if _, ok := t.degrees[deg.ID]; ok {
			t.degrees[deg.ID] = deg
			err = nil
		}
	})
	return deg, err
}

func (repo *hierarchyRepository) DeleteDegree(ctx context.Context, id int64, exec ...core.DBExecutor) error {
	repo.db.write(exec, func(t *tables) { delete(t.degrees, id) })
	return nil
}

// Rooms

func (repo *hierarchyRepository) ListRooms(ctx context.Context, centerID int64, exec ...core.DBExecutor) (rooms []hierarchy.Room, err error) {
	repo.db.read(func(t *tables) {
		rooms = sortedByID(t.rooms, func(room hierarchy.Room) bool { return room.CenterID == centerID })
	})
	return rooms, nil
}

func (repo *hierarchyRepository) GetRoom(ctx context.Context, id int64, exec ...core.DBExecutor) (room hierarchy.Room, err error) {
	err = hierarchy.ErrRoomNotFound
	repo.db.read(func(t *tables) {
		if r, ok := t.rooms[id]; ok {
			room, err = r, nil
		}
	})
	return room, err
}

func (repo *hierarchyRepository) CreateRoom(ctx context.Context, room hierarchy.Room, exec ...core.DBExecutor) (hierarchy.Room, error) {
	repo.db.write(exec, func(t *tables) {
		room.ID = t.nextID()
		t.rooms[room.ID] = room
	})
	return room, nil
}

func (repo *hierarchyRepository) UpdateRoom(ctx context.Context, room hierarchy.Room, exec ...core.DBExecutor) (hierarchy.Room, error) {
	err := hierarchy.ErrRoomNotFound
	repo.db.write(exec, func(t *tables) {
		if _, ok := t.rooms[room.ID]; ok {
			t.rooms[room.ID] = room
			err = nil
		}
	})
	return room, err
}

// DeleteRoom removes a room. Groups taught in it are left without room.
func (repo *hierarchyRepository) DeleteRoom(ctx context.Context, id int64, exec ...core.DBExecutor) error {
	repo.db.write(exec, func(t *tables) {
		delete(t.rooms, id)
		for gID, g := range t.groups {
			if g.RoomID.Valid && g.RoomID.Int64 == id {
				g.RoomID.Valid = false
				g.RoomID.Int64 = 0
				t.groups[gID] = g
			}
		}
	})
	return nil
}

func (repo *hierarchyRepository) CountChildren(ctx context.Context, level hierarchy.Level, id int64, exec ...core.DBExecutor) (n int, err error) {
	repo.db.read(func(t *tables) {
		switch level {
		case hierarchy.LevelCountry:
			for _, ins := range t.institutions {
				if ins.CountryID == id {
					n++
				}
			}
		case hierarchy.LevelInstitution:
			for _, ctr := range t.centers {
				if ctr.InstitutionID == id {
					n++
				}
			}
		case hierarchy.LevelCenter:
			for _, deg := range t.degrees {
				if deg.CenterID == id {
					n++
				}
			}
			for _, room := range t.rooms {
				if room.CenterID == id {
					n++
				}
			}
		case hierarchy.LevelDegree:
			for _, crs := range t.courses {
				if crs.DegreeID == id {
					n++
				}
			}
		}
	})
	return n, nil
}
