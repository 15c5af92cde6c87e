package hierarchy

import (
	"context"
	"strings"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/acanas/swad-core-sub004/core"
)

var (
	ErrCountryNotFound     = core.NewNotFoundError("country")
	ErrInstitutionNotFound = core.NewNotFoundError("institution")
	ErrCenterNotFound      = core.NewNotFoundError("center")
	ErrDegreeNotFound      = core.NewNotFoundError("degree")
	ErrRoomNotFound        = core.NewNotFoundError("room")

	ErrNotEmpty = core.NewConflictError("it is not possible to remove a node that still has children")

	errAlpha2Exists    = "a country with this code already exists"
	errNameExists      = "a country with this name already exists"
	errShortNameExists = "this short name is already used by another node at the same level"
	errFullNameExists  = "this full name is already used by another node at the same level"
)

type (
	Repository interface {
		ListCountries(ctx context.Context, exec ...core.DBExecutor) ([]Country, error)
		GetCountry(ctx context.Context, id int64, exec ...core.DBExecutor) (Country, error)
		CreateCountry(ctx context.Context, cty Country, exec ...core.DBExecutor) (Country, error)
		UpdateCountry(ctx context.Context, cty Country, exec ...core.DBExecutor) (Country, error)
		DeleteCountry(ctx context.Context, id int64, exec ...core.DBExecutor) error

		// ListInstitutions lists the institutions of a country, or all of them when countryID is 0.
		ListInstitutions(ctx context.Context, countryID int64, exec ...core.DBExecutor) ([]Institution, error)
		GetInstitution(ctx context.Context, id int64, exec ...core.DBExecutor) (Institution, error)
		CreateInstitution(ctx context.Context, ins Institution, exec ...core.DBExecutor) (Institution, error)
		UpdateInstitution(ctx context.Context, ins Institution, exec ...core.DBExecutor) (Institution, error)
		DeleteInstitution(ctx context.Context, id int64, exec ...core.DBExecutor) error

		ListCenters(ctx context.Context, filter CenterFilter, exec ...core.DBExecutor) ([]Center, error)
		GetCenter(ctx context.Context, id int64, exec ...core.DBExecutor) (Center, error)
		CreateCenter(ctx context.Context, ctr Center, exec ...core.DBExecutor) (Center, error)
		UpdateCenter(ctx context.Context, ctr Center, exec ...core.DBExecutor) (Center, error)
		DeleteCenter(ctx context.Context, id int64, exec ...core.DBExecutor) error

		ListDegrees(ctx context.Context, centerID int64, exec ...core.DBExecutor) ([]Degree, error)
		GetDegree(ctx context.Context, id int64, exec ...core.DBExecutor) (Degree, error)
		CreateDegree(ctx context.Context, deg Degree, exec ...core.DBExecutor) (Degree, error)
		UpdateDegree(ctx context.Context, deg Degree, exec ...core.DBExecutor) (Degree, error)
		DeleteDegree(ctx context.Context, id int64, exec ...core.DBExecutor) error

		ListRooms(ctx context.Context, centerID int64, exec ...core.DBExecutor) ([]Room, error)
		GetRoom(ctx context.Context, id int64, exec ...core.DBExecutor) (Room, error)
		CreateRoom(ctx context.Context, room Room, exec ...core.DBExecutor) (Room, error)
		UpdateRoom(ctx context.Context, room Room, exec ...core.DBExecutor) (Room, error)
		DeleteRoom(ctx context.Context, id int64, exec ...core.DBExecutor) error

		// CountChildren counts the nodes hanging from a node: institutions of a country, centers of an institution,
		// degrees and rooms of a center, courses of a degree.
		CountChildren(ctx context.Context, level Level, id int64, exec ...core.DBExecutor) (int, error)
	}

	Service struct {
		repo Repository
		lang string
	}
)

func NewService(repo Repository, conf *core.Config) *Service {
	return &Service{repo: repo, lang: conf.Language}
}

// checkNames reports a validation error when short or full name is used by a sibling other than excludeID.
func checkNames(short, full string, excludeID int64, siblings func(i int) (int64, string, string), n int) error {
	for i := 0; i < n; i++ {
		id, s, f := siblings(i)
		if id == excludeID {
			continue
		}
		if short != "" && core.SameName(s, short) {
			return core.NewFieldValidationError("short_name", errShortNameExists)
		}
		if full != "" && core.SameName(f, full) {
			return core.NewFieldValidationError("full_name", errFullNameExists)
		}
	}
	return nil
}

func (svc *Service) checkEmpty(ctx context.Context, level Level, id int64) error {
	n, err := svc.repo.CountChildren(ctx, level, id)
	if err != nil {
		return errors.Wrapf(err, "counting children of %s", level)
	}
	if n > 0 {
		return ErrNotEmpty
	}
	return nil
}

func cleanName(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Countries

func (svc *Service) ListCountries(ctx context.Context) ([]Country, error) {
	ctys, err := svc.repo.ListCountries(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "listing countries")
	}
	core.SortByName(svc.lang, len(ctys),
		func(i int) string { return ctys[i].Name },
		func(i, j int) { ctys[i], ctys[j] = ctys[j], ctys[i] },
	)
	return ctys, nil
}

func (svc *Service) GetCountry(ctx context.Context, id int64) (Country, error) {
	return svc.repo.GetCountry(ctx, id)
}

func (svc *Service) checkCountry(ctx context.Context, cty Country) error {
	ctys, err := svc.repo.ListCountries(ctx)
	if err != nil {
		return errors.Wrap(err, "listing countries")
	}
	for _, c := range ctys {
		if c.ID == cty.ID {
			continue
		}
		if c.Alpha2 == cty.Alpha2 {
			return core.NewFieldValidationError("alpha2", errAlpha2Exists)
		}
		if core.SameName(c.Name, cty.Name) {
			return core.NewFieldValidationError("name", errNameExists)
		}
	}
	return nil
}

func (svc *Service) CreateCountry(ctx context.Context, nc NewCountry) (Country, error) {
	cty := Country{
		Alpha2: strings.ToUpper(core.CleanString(nc.Alpha2)),
		Name:   cleanName(nc.Name),
		WWW:    core.CleanString(nc.WWW),
	}
	if err := svc.checkCountry(ctx, cty); err != nil {
		return Country{}, err
	}
	return svc.repo.CreateCountry(ctx, cty)
}

func (svc *Service) UpdateCountry(ctx context.Context, id int64, uc UpdateCountry) (Country, error) {
	cty, err := svc.repo.GetCountry(ctx, id)
	if err != nil {
		return Country{}, err
	}
	if uc.Name != nil {
		cty.Name = cleanName(*uc.Name)
	}
	if uc.WWW != nil {
		cty.WWW = core.CleanString(*uc.WWW)
	}
	if err = svc.checkCountry(ctx, cty); err != nil {
		return Country{}, err
	}
	return svc.repo.UpdateCountry(ctx, cty)
}

func (svc *Service) RemoveCountry(ctx context.Context, id int64) error {
	if _, err := svc.repo.GetCountry(ctx, id); err != nil {
		return err
	}
	if err := svc.checkEmpty(ctx, LevelCountry, id); err != nil {
		return err
	}
	return svc.repo.DeleteCountry(ctx, id)
}

// Institutions

// ListInstitutions lists the institutions of a country sorted by full name.
// Removed institutions are only listed when withRemoved is set.
func (svc *Service) ListInstitutions(ctx context.Context, countryID int64, withRemoved bool) ([]Institution, error) {
	all, err := svc.repo.ListInstitutions(ctx, countryID)
	if err != nil {
		return nil, errors.Wrap(err, "listing institutions")
	}
	inss := make([]Institution, 0, len(all))
	for _, ins := range all {
		if withRemoved || !ins.IsRemoved() {
			inss = append(inss, ins)
		}
	}
	core.SortByName(svc.lang, len(inss),
		func(i int) string { return inss[i].FullName },
		func(i, j int) { inss[i], inss[j] = inss[j], inss[i] },
	)
	return inss, nil
}

func (svc *Service) GetInstitution(ctx context.Context, id int64) (Institution, error) {
	return svc.repo.GetInstitution(ctx, id)
}

func (svc *Service) checkInstitutionNames(ctx context.Context, ins Institution) error {
	siblings, err := svc.repo.ListInstitutions(ctx, ins.CountryID)
	if err != nil {
		return errors.Wrap(err, "listing institutions")
	}
	return checkNames(ins.ShortName, ins.FullName, ins.ID, func(i int) (int64, string, string) {
		return siblings[i].ID, siblings[i].ShortName, siblings[i].FullName
	}, len(siblings))
}

// CreateInstitution creates an institution. Institutions requested by non admins stay pending until accepted.
func (svc *Service) CreateInstitution(ctx context.Context, ni NewInstitution, requesterID string, pending bool) (Institution, error) {
	if _, err := svc.repo.GetCountry(ctx, ni.CountryID); err != nil {
		if errors.Cause(err) == ErrCountryNotFound {
			return Institution{}, core.NewFieldValidationError("country_id", "country not found")
		}
		return Institution{}, err
	}
	ni.Clean()
	ins := Institution{
		CountryID:   ni.CountryID,
		ShortName:   ni.ShortName,
		FullName:    ni.FullName,
		WWW:         core.CleanString(ni.WWW),
		RequesterID: null.NewString(requesterID, requesterID != ""),
	}
	if pending {
		ins.Status = StatusPending
	}
	if err := svc.checkInstitutionNames(ctx, ins); err != nil {
		return Institution{}, err
	}
	return svc.repo.CreateInstitution(ctx, ins)
}

func (svc *Service) UpdateInstitution(ctx context.Context, id int64, ui UpdateInstitution) (Institution, error) {
	ins, err := svc.repo.GetInstitution(ctx, id)
	if err != nil {
		return Institution{}, err
	}
	if ui.CountryID != nil && *ui.CountryID != ins.CountryID {
		if _, err = svc.repo.GetCountry(ctx, *ui.CountryID); err != nil {
			if errors.Cause(err) == ErrCountryNotFound {
				return Institution{}, core.NewFieldValidationError("country_id", "country not found")
			}
			return Institution{}, err
		}
		ins.CountryID = *ui.CountryID
	}
	if ui.ShortName != nil {
		ins.ShortName = cleanName(*ui.ShortName)
	}
	if ui.FullName != nil {
		ins.FullName = cleanName(*ui.FullName)
	}
	if ui.WWW != nil {
		ins.WWW = core.CleanString(*ui.WWW)
	}
	if ui.Status != nil {
		ins.Status = *ui.Status & statusAll
	}
	if err = svc.checkInstitutionNames(ctx, ins); err != nil {
		return Institution{}, err
	}
	return svc.repo.UpdateInstitution(ctx, ins)
}

func (svc *Service) RemoveInstitution(ctx context.Context, id int64) error {
	if _, err := svc.repo.GetInstitution(ctx, id); err != nil {
		return err
	}
	if err := svc.checkEmpty(ctx, LevelInstitution, id); err != nil {
		return err
	}
	return svc.repo.DeleteInstitution(ctx, id)
}

// Centers

func (svc *Service) ListCenters(ctx context.Context, filter CenterFilter) ([]Center, error) {
	ctrs, err := svc.repo.ListCenters(ctx, filter)
	if err != nil {
		return nil, errors.Wrap(err, "listing centers")
	}
	core.SortByName(svc.lang, len(ctrs),
		func(i int) string { return ctrs[i].FullName },
		func(i, j int) { ctrs[i], ctrs[j] = ctrs[j], ctrs[i] },
	)
	return ctrs, nil
}

func (svc *Service) GetCenter(ctx context.Context, id int64) (Center, error) {
	return svc.repo.GetCenter(ctx, id)
}

func (svc *Service) checkCenterNames(ctx context.Context, ctr Center) error {
	siblings, err := svc.repo.ListCenters(ctx, CenterFilter{InstitutionID: ctr.InstitutionID})
	if err != nil {
		return errors.Wrap(err, "listing centers")
	}
	return checkNames(ctr.ShortName, ctr.FullName, ctr.ID, func(i int) (int64, string, string) {
		return siblings[i].ID, siblings[i].ShortName, siblings[i].FullName
	}, len(siblings))
}

func (svc *Service) CreateCenter(ctx context.Context, nc NewCenter) (Center, error) {
	if _, err := svc.repo.GetInstitution(ctx, nc.InstitutionID); err != nil {
		if errors.Cause(err) == ErrInstitutionNotFound {
			return Center{}, core.NewFieldValidationError("institution_id", "institution not found")
		}
		return Center{}, err
	}
	nc.Clean()
	ctr := Center{
		InstitutionID: nc.InstitutionID,
		ShortName:     nc.ShortName,
		FullName:      nc.FullName,
		WWW:           core.CleanString(nc.WWW),
	}
	if err := svc.checkCenterNames(ctx, ctr); err != nil {
		return Center{}, err
	}
	return svc.repo.CreateCenter(ctx, ctr)
}

func (svc *Service) UpdateCenter(ctx context.Context, id int64, uc UpdateCenter) (Center, error) {
	ctr, err := svc.repo.GetCenter(ctx, id)
	if err != nil {
		return Center{}, err
	}
	if uc.InstitutionID != nil && *uc.InstitutionID != ctr.InstitutionID {
		if _, err = svc.repo.GetInstitution(ctx, *uc.InstitutionID); err != nil {
			if errors.Cause(err) == ErrInstitutionNotFound {
				return Center{}, core.NewFieldValidationError("institution_id", "institution not found")
			}
			return Center{}, err
		}
		ctr.InstitutionID = *uc.InstitutionID
	}
	if uc.ShortName != nil {
		ctr.ShortName = cleanName(*uc.ShortName)
	}
	if uc.FullName != nil {
		ctr.FullName = cleanName(*uc.FullName)
	}
	if uc.WWW != nil {
		ctr.WWW = core.CleanString(*uc.WWW)
	}
	if err = svc.checkCenterNames(ctx, ctr); err != nil {
		return Center{}, err
	}
	return svc.repo.UpdateCenter(ctx, ctr)
}

// ChangeCenterCoordinates stores the coordinates of a center, clamped to their valid ranges.
func (svc *Service) ChangeCenterCoordinates(ctx context.Context, id int64, coord Coordinates) (Center, error) {
	ctr, err := svc.repo.GetCenter(ctx, id)
	if err != nil {
		return Center{}, err
	}
	ctr.Coordinates = coord.Clamp()
	return svc.repo.UpdateCenter(ctx, ctr)
}

func (svc *Service) RemoveCenter(ctx context.Context, id int64) error {
	if _, err := svc.repo.GetCenter(ctx, id); err != nil {
		return err
	}
	if err := svc.checkEmpty(ctx, LevelCenter, id); err != nil {
		return err
	}
	return svc.repo.DeleteCenter(ctx, id)
}

// Degrees

func (svc *Service) ListDegrees(ctx context.Context, centerID int64) ([]Degree, error) {
	degs, err := svc.repo.ListDegrees(ctx, centerID)
	if err != nil {
		return nil, errors.Wrap(err, "listing degrees")
	}
	core.SortByName(svc.lang, len(degs),
		func(i int) string { return degs[i].FullName },
		func(i, j int) { degs[i], degs[j] = degs[j], degs[i] },
	)
	return degs, nil
}

func (svc *Service) GetDegree(ctx context.Context, id int64) (Degree, error) {
	return svc.repo.GetDegree(ctx, id)
}

func (svc *Service) checkDegreeNames(ctx context.Context, deg Degree) error {
	siblings, err := svc.repo.ListDegrees(ctx, deg.CenterID)
	if err != nil {
		return errors.Wrap(err, "listing degrees")
	}
	return checkNames(deg.ShortName, deg.FullName, deg.ID, func(i int) (int64, string, string) {
		return siblings[i].ID, siblings[i].ShortName, siblings[i].FullName
	}, len(siblings))
}

func (svc *Service) CreateDegree(ctx context.Context, nd NewDegree) (Degree, error) {
	if _, err := svc.repo.GetCenter(ctx, nd.CenterID); err != nil {
		if errors.Cause(err) == ErrCenterNotFound {
			return Degree{}, core.NewFieldValidationError("center_id", "center not found")
		}
		return Degree{}, err
	}
	nd.Clean()
	deg := Degree{
		CenterID:  nd.CenterID,
		ShortName: nd.ShortName,
		FullName:  nd.FullName,
		WWW:       core.CleanString(nd.WWW),
	}
	if err := svc.checkDegreeNames(ctx, deg); err != nil {
		return Degree{}, err
	}
	return svc.repo.CreateDegree(ctx, deg)
}

func (svc *Service) UpdateDegree(ctx context.Context, id int64, ud UpdateDegree) (Degree, error) {
	deg, err := svc.repo.GetDegree(ctx, id)
	if err != nil {
		return Degree{}, err
	}
	if ud.ShortName != nil {
		deg.ShortName = cleanName(*ud.ShortName)
	}
	if ud.FullName != nil {
		deg.FullName = cleanName(*ud.FullName)
	}
	if ud.WWW != nil {
		deg.WWW = core.CleanString(*ud.WWW)
	}
	if err = svc.checkDegreeNames(ctx, deg); err != nil {
		return Degree{}, err
	}
	return svc.repo.UpdateDegree(ctx, deg)
}

func (svc *Service) RemoveDegree(ctx context.Context, id int64) error {
	if _, err := svc.repo.GetDegree(ctx, id); err != nil {
		return err
	}
	if err := svc.checkEmpty(ctx, LevelDegree, id); err != nil {
		return err
	}
	return svc.repo.DeleteDegree(ctx, id)
}

// Rooms

func (svc *Service) ListRooms(ctx context.Context, centerID int64) ([]Room, error) {
	rooms, err := svc.repo.ListRooms(ctx, centerID)
	if err != nil {
		return nil, errors.Wrap(err, "listing rooms")
	}
	core.SortByName(svc.lang, len(rooms),
		func(i int) string { return rooms[i].ShortName },
		func(i, j int) { rooms[i], rooms[j] = rooms[j], rooms[i] },
	)
	return rooms, nil
}

func (svc *Service) GetRoom(ctx context.Context, id int64) (Room, error) {
	return svc.repo.GetRoom(ctx, id)
}

func (svc *Service) checkRoomNames(ctx context.Context, room Room) error {
	siblings, err := svc.repo.ListRooms(ctx, room.CenterID)
	if err != nil {
		return errors.Wrap(err, "listing rooms")
	}
	return checkNames(room.ShortName, room.FullName, room.ID, func(i int) (int64, string, string) {
		return siblings[i].ID, siblings[i].ShortName, siblings[i].FullName
	}, len(siblings))
}

func (svc *Service) CreateRoom(ctx context.Context, centerID int64, nr NewRoom) (Room, error) {
	if _, err := svc.repo.GetCenter(ctx, centerID); err != nil {
		return Room{}, err
	}
	nr.Clean()
	room := Room{
		CenterID:  centerID,
		ShortName: nr.ShortName,
		FullName:  nr.FullName,
		Capacity:  nr.Capacity,
	}
	if err := svc.checkRoomNames(ctx, room); err != nil {
		return Room{}, err
	}
	return svc.repo.CreateRoom(ctx, room)
}

func (svc *Service) UpdateRoom(ctx context.Context, id int64, ur UpdateRoom) (Room, error) {
	room, err := svc.repo.GetRoom(ctx, id)
	if err != nil {
		return Room{}, err
	}
	if ur.ShortName != nil {
		room.ShortName = cleanName(*ur.ShortName)
	}
	if ur.FullName != nil {
		room.FullName = cleanName(*ur.FullName)
	}
	if ur.Capacity != nil {
		room.Capacity = *ur.Capacity
	}
	if err = svc.checkRoomNames(ctx, room); err != nil {
		return Room{}, err
	}
	return svc.repo.UpdateRoom(ctx, room)
}

func (svc *Service) RemoveRoom(ctx context.Context, id int64) error {
	if _, err := svc.repo.GetRoom(ctx, id); err != nil {
		return err
	}
	return svc.repo.DeleteRoom(ctx, id)
}

// Maps

// MapView returns the map of the centers under a node of the tree.
func (svc *Service) MapView(ctx context.Context, level Level, id int64) (MapView, error) {
	filter := CenterFilter{WithCoordinates: true}
	switch level {
	case LevelSystem:
	case LevelCountry:
		if _, err := svc.repo.GetCountry(ctx, id); err != nil {
			return MapView{}, err
		}
		filter.CountryID = id
	case LevelInstitution:
		if _, err := svc.repo.GetInstitution(ctx, id); err != nil {
			return MapView{}, err
		}
		filter.InstitutionID = id
	case LevelCenter:
		ctr, err := svc.repo.GetCenter(ctx, id)
		if err != nil {
			return MapView{}, err
		}
		return ComputeView([]Center{ctr}), nil
	default:
		return MapView{}, errors.Errorf("no map for level %s", level)
	}

	ctrs, err := svc.repo.ListCenters(ctx, filter)
	if err != nil {
		return MapView{}, errors.Wrap(err, "listing centers")
	}
	return ComputeView(ctrs), nil
}
