// dto.go — JSON-представления доменных моделей для REST API.
package handlers

import (
	"time"

	"github.com/civicwatch/civicwatch/internal/domain/model"
)

type panelDTO struct {
	ID            string     `json:"id"`
	Name          string     `json:"name"`
	Latitude      float64    `json:"latitude"`
	Longitude     float64    `json:"longitude"`
	LastCheckedAt *time.Time `json:"last_checked_at"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

func toPanelDTO(p *model.Panel) panelDTO {
	return panelDTO{
		ID:            p.ID,
		Name:          p.Name,
		Latitude:      p.Latitude,
		Longitude:     p.Longitude,
		LastCheckedAt: p.LastCheckedAt,
		CreatedAt:     p.CreatedAt,
		UpdatedAt:     p.UpdatedAt,
	}
}

type panelCreateRequest struct {
	Name      string  `json:"name"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type panelUpdateRequest struct {
	Name      *string  `json:"name"`
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
}

type checkSubmitRequest struct {
	State       string  `json:"state"`
	Comment     *string `json:"comment"`
	EvidenceRef *string `json:"evidence_ref"`
}

type checkDTO struct {
	ID               string     `json:"id"`
	PanelID          string     `json:"panel_id"`
	PanelName        string     `json:"panel_name,omitempty"`
	UserID           string     `json:"user_id"`
	UserName         string     `json:"user_name"`
	CheckedAt        time.Time  `json:"checked_at"`
	Status           string     `json:"status"`
	State            string     `json:"state"`
	Comment          *string    `json:"comment"`
	EvidenceRef      *string    `json:"evidence_ref"`
	PointsAttributed *int       `json:"points_attributed"`
	ValidatedAt      *time.Time `json:"validated_at"`
	ValidatedBy      *string    `json:"validated_by"`
}

func toCheckDTO(c *model.CheckSubmission) checkDTO {
	return checkDTO{
		ID:               c.ID,
		PanelID:          c.PanelID,
		UserID:           c.UserID,
		UserName:         c.UserName,
		CheckedAt:        c.CheckedAt,
		Status:           string(c.Status),
		State:            string(c.State),
		Comment:          c.Comment,
		EvidenceRef:      c.EvidenceRef,
		PointsAttributed: c.PointsAttributed,
		ValidatedAt:      c.ValidatedAt,
		ValidatedBy:      c.ValidatedBy,
	}
}

func toPendingDTOs(checks []*model.PendingCheck) []checkDTO {
	out := make([]checkDTO, 0, len(checks))
	for _, c := range checks {
		dto := toCheckDTO(&c.CheckSubmission)
		dto.PanelName = c.PanelName
		out = append(out, dto)
	}
	return out
}

type balanceDTO struct {
	UserID  string `json:"user_id"`
	Balance int64  `json:"balance"`
}

type ledgerEntryDTO struct {
	ID          string    `json:"id"`
	Amount      int       `json:"amount"`
	Reason      string    `json:"reason"`
	ReferenceID *string   `json:"reference_id"`
	CreatedAt   time.Time `json:"created_at"`
}

type rewardDTO struct {
	ID             string  `json:"id"`
	Name           string  `json:"name"`
	Partners       *string `json:"partners"`
	Services       *string `json:"services"`
	ValueEUR       float64 `json:"value_eur"`
	PointsRequired int     `json:"points_required"`
}

type claimDTO struct {
	ID         string    `json:"id"`
	RewardID   string    `json:"reward_id"`
	RewardName string    `json:"reward_name"`
	ClaimedAt  time.Time `json:"claimed_at"`
}

func toClaimDTO(c *model.RewardClaim) claimDTO {
	return claimDTO{
		ID:         c.ID,
		RewardID:   c.RewardID,
		RewardName: c.RewardName,
		ClaimedAt:  c.ClaimedAt,
	}
}

type melPropertyDTO struct {
	Lat           float64   `json:"lat"`
	Lon           float64   `json:"lon"`
	LastReport    time.Time `json:"last_report"`
	NaturalSpace  bool      `json:"natural_space"`
	PointsValue   int       `json:"points_value"`
	NumberOfSigns int       `json:"number_of_signs"`
	Creator       string    `json:"creator"`
}

func toMelPropertyDTO(p *model.MelProperty) melPropertyDTO {
	return melPropertyDTO{
		Lat:           p.Location.Lat,
		Lon:           p.Location.Lon,
		LastReport:    p.LastReport,
		NaturalSpace:  p.NaturalSpace,
		PointsValue:   p.PointsValue,
		NumberOfSigns: p.NumberOfSigns,
		Creator:       p.Creator,
	}
}

type melPropertyCreateRequest struct {
	Lat           float64 `json:"lat"`
	Lon           float64 `json:"lon"`
	NaturalSpace  bool    `json:"natural_space"`
	PointsValue   int     `json:"points_value"`
	NumberOfSigns int     `json:"number_of_signs"`
}

type melPropertyUpdateRequest struct {
	NaturalSpace  *bool `json:"natural_space"`
	PointsValue   *int  `json:"points_value"`
	NumberOfSigns *int  `json:"number_of_signs"`
}

type melSignDTO struct {
	ID                  int64   `json:"id"`
	Lat                 float64 `json:"lat"`
	Lon                 float64 `json:"lon"`
	SignType            string  `json:"sign_type"`
	Tagged              bool    `json:"tagged"`
	DeterioratedInfo    bool    `json:"deteriorated_info"`
	HiddenByEnvironment bool    `json:"hidden_by_environment"`
	Standing            bool    `json:"standing"`
	Present             bool    `json:"present"`
	ComponentTotal      int     `json:"component_total"`
}

func toMelSignDTO(s *model.MelSign) melSignDTO {
	return melSignDTO{
		ID:                  s.ID,
		Lat:                 s.Location.Lat,
		Lon:                 s.Location.Lon,
		SignType:            s.SignType,
		Tagged:              s.Tagged,
		DeterioratedInfo:    s.DeterioratedInfo,
		HiddenByEnvironment: s.HiddenByEnvironment,
		Standing:            s.Standing,
		Present:             s.Present,
		ComponentTotal:      s.ComponentTotal,
	}
}

type melSignCreateRequest struct {
	Lat                 float64 `json:"lat"`
	Lon                 float64 `json:"lon"`
	SignType            string  `json:"sign_type"`
	Tagged              bool    `json:"tagged"`
	DeterioratedInfo    bool    `json:"deteriorated_info"`
	HiddenByEnvironment bool    `json:"hidden_by_environment"`
	Standing            bool    `json:"standing"`
	Present             bool    `json:"present"`
	ComponentTotal      int     `json:"component_total"`
}

type melSignUpdateRequest struct {
	SignType            *string `json:"sign_type"`
	Tagged              *bool   `json:"tagged"`
	DeterioratedInfo    *bool   `json:"deteriorated_info"`
	HiddenByEnvironment *bool   `json:"hidden_by_environment"`
	Standing            *bool   `json:"standing"`
	Present             *bool   `json:"present"`
	ComponentTotal      *int    `json:"component_total"`
}

type melSignTypeDTO struct {
	SignType string `json:"sign_type"`
}

func toMelSignTypeDTO(t *model.MelSignType) melSignTypeDTO {
	return melSignTypeDTO{SignType: t.Name}
}

type melSignTypeCreateRequest struct {
	SignType string `json:"sign_type"`
}

type melReportDTO struct {
	UserID     string    `json:"user_id"`
	Lat        float64   `json:"lat"`
	Lon        float64   `json:"lon"`
	ReportedAt time.Time `json:"reported_at"`
}

func toMelReportDTO(rep *model.MelReport) melReportDTO {
	return melReportDTO{
		UserID:     rep.UserID,
		Lat:        rep.Location.Lat,
		Lon:        rep.Location.Lon,
		ReportedAt: rep.ReportedAt,
	}
}

type melReportCreateRequest struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

type roleOverrideDTO struct {
	UserID         string    `json:"user_id"`
	Username       string    `json:"username"`
	AdditionalRole string    `json:"additional_role"`
	CreatedBy      string    `json:"created_by"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func toRoleOverrideDTO(ro *model.RoleOverride) roleOverrideDTO {
	return roleOverrideDTO{
		UserID:         ro.UserID,
		Username:       ro.Username,
		AdditionalRole: ro.AdditionalRole,
		CreatedBy:      ro.CreatedBy,
		CreatedAt:      ro.CreatedAt,
		UpdatedAt:      ro.UpdatedAt,
	}
}

type roleOverrideRequest struct {
	Username string `json:"username"`
	Role     string `json:"role"`
}

// mapSlice применяет f к каждому элементу; пустой результат кодируется как [].
func mapSlice[S any, D any](in []S, f func(S) D) []D {
	out := make([]D, 0, len(in))
	for _, v := range in {
		out = append(out, f(v))
	}
	return out
}
