// Package darwinxml declares the XML schema for the Darwin Push Port
// envelope: the Pport document, its uR (update) and sR (schedule)
// children, and the update variants carried inside uR.
package darwinxml

import "encoding/xml"

// PushPort is the root of a decoded Push Port frame. ScheduleRecord is
// decoded but never consulted: the sR branch is ignored by design.
type PushPort struct {
	XMLName        xml.Name        `xml:"Pport"`
	UpdateRecord   *UpdateRecord   `xml:"uR"`
	ScheduleRecord *ScheduleRecord `xml:"sR"`
}

// ScheduleRecord is decoded for schema completeness only; C4 never
// reads it.
type ScheduleRecord struct {
	InnerXML []byte `xml:",innerxml"`
}

// UpdateRecord carries zero or more of each update variant. Each
// field is modeled as an optional list, per the design note that an
// UpdateRecord is a union of independent lists rather than a single
// tagged value.
type UpdateRecord struct {
	TrainStatus    []TrainStatus    `xml:"TS"`
	TrainOrder     []TrainOrder     `xml:"TO"`
	StationMessage []StationMessage `xml:"OW"`
	Loading        []Loading        `xml:"loadingFormation"`
	LoadingLegacy  []Loading        `xml:"formationLoading"`
	Association    []Association    `xml:"associationReq"`
	Formation      []Formation      `xml:"formation"`
	TrainAlert     []TrainAlert     `xml:"trainAlert"`
	TrackingId     []TrackingId     `xml:"trackingID"`
	Alarm          []Alarm          `xml:"alarm"`
}

// AllLoading returns Loading elements accepted under either the
// canonical tag or its historical alias, canonical first.
func (u *UpdateRecord) AllLoading() []Loading {
	if u == nil {
		return nil
	}
	out := make([]Loading, 0, len(u.Loading)+len(u.LoadingLegacy))
	out = append(out, u.Loading...)
	out = append(out, u.LoadingLegacy...)
	return out
}

// TrainStatus is a TS element: a per-rid running status carrying zero
// or more Location updates.
type TrainStatus struct {
	RID        string      `xml:"rid,attr"`
	UID        string      `xml:"uid,attr"`
	SSD        string      `xml:"ssd,attr"`
	IsActive   *bool       `xml:"isActive,attr"`
	LateReason *LateReason `xml:"LateReason"`
	Locations  []Location  `xml:"Location"`
}

// LateReason is decoded but not folded by C4.
type LateReason struct {
	Code string `xml:"Reason,attr"`
	Text string `xml:",chardata"`
}

// Location is one stop-level update within a TrainStatus.
type Location struct {
	TPL       string    `xml:"tpl,attr"`
	WTA       string    `xml:"wta,attr"`
	WTP       string    `xml:"wtp,attr"`
	WTD       string    `xml:"wtd,attr"`
	PTD       string    `xml:"ptd,attr"`
	Suppr     *bool     `xml:"suppr,attr"`
	Length    string    `xml:"length"`
	Platform  *Platform `xml:"plat"`
	Arrival   *Forecast `xml:"arr"`
	Departure *Forecast `xml:"dep"`
	Pass      *Forecast `xml:"pass"`
}

// Platform is the plat element: free text plus suppression/confidence
// attributes.
type Platform struct {
	Number      string `xml:",chardata"`
	PlatSup     *bool  `xml:"platsup,attr"`
	CISPlatSup  *bool  `xml:"cisPlatsup,attr"`
	Confirmed   *bool  `xml:"conf,attr"`
	PlatformSrc string `xml:"platsrc,attr"`
}

// Forecast is shared by arr, dep, and pass: estimated and/or actual
// time, HH:MM.
type Forecast struct {
	ET string `xml:"et,attr"`
	AT string `xml:"at,attr"`
}

// TrainOrder is a TO element describing platform-contention ranking
// at a station.
type TrainOrder struct {
	Tiploc   string         `xml:"tiploc,attr"`
	CRS      string         `xml:"crs,attr"`
	Platform string         `xml:"platform,attr"`
	Set      *TrainOrderSet `xml:"set"`
	Clear    *struct{}      `xml:"clear"`
}

// TrainOrderSet holds the three ranked slots.
type TrainOrderSet struct {
	First  *TrainOrderSlot `xml:"first"`
	Second *TrainOrderSlot `xml:"second"`
	Third  *TrainOrderSlot `xml:"third"`
}

// TrainOrderSlot names a single train occupying a rank.
type TrainOrderSlot struct {
	RID     *TrainOrderRID `xml:"rid"`
	TrainID string         `xml:"trainID"`
}

// TrainOrderRID is the rid element nested inside a TrainOrderSlot; it
// carries working/public times alongside the rid value itself.
type TrainOrderRID struct {
	Value string `xml:",chardata"`
	WTA   string `xml:"wta,attr"`
	WTD   string `xml:"wtd,attr"`
	PTA   string `xml:"pta,attr"`
	PTD   string `xml:"ptd,attr"`
}

// StationMessage is an OW element; the message text is a child Msg
// element, not character data of OW itself.
type StationMessage struct {
	ID       string `xml:"id,attr"`
	Category string `xml:"cat,attr"`
	Body     string `xml:"Msg"`
}

// Loading is decoded but not folded; occupancy propagation is
// deferred (§4.4.6).
type Loading struct {
	RID string `xml:"rid,attr"`
}

// Formation carries the rid and the ordered coach list for a train.
type Formation struct {
	RID   string  `xml:"rid,attr"`
	Coach []Coach `xml:"coach"`
}

// Coach is one vehicle within a Formation.
type Coach struct {
	Number     string `xml:"number,attr"`
	CoachClass string `xml:"coachClass,attr"`
}

// Association, TrainAlert, TrackingId, and Alarm round out the
// schema so the envelope decodes faithfully; none of them is folded
// by C4 in this version.
type Association struct {
	Category string `xml:"category,attr"`
	MainRID  string `xml:"mainTrainID,attr"`
	AssocRID string `xml:"assocTrainID,attr"`
}

type TrainAlert struct {
	RID  string `xml:"rid,attr"`
	Text string `xml:",chardata"`
}

type TrackingId struct {
	RID        string `xml:"rid,attr"`
	TrackingId string `xml:"trackingID,attr"`
}

type Alarm struct {
	Description string `xml:"desc,attr"`
}
