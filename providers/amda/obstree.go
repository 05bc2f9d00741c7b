/*
Copyright © 2021 the Heliocat authors.
This file is part of Heliocat.

Heliocat is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

Heliocat is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with Heliocat.  If not, see <http://www.gnu.org/licenses/>.
*/

package amda

import (
	"encoding/xml"
	"fmt"
	"strconv"
	"time"

	"github.com/spacephys/heliocat"
)

// The observatory tree is the XML document behind getObsDataTree.php. It
// lists every public dataset: dataCenter → mission → instrument → dataset
// → parameter → component. In AMDA all datasets are time series; dataset
// and parameter ids are unique across the whole tree.

const (
	obsTreeDateFormat = "2006-01-02T15:04:05Z"

	// missionDependent is the coverage sentinel for datasets whose
	// bounds depend on the mission and are still being extended.
	missionDependent = "MissionDependent"
)

type obsTreeDoc struct {
	XMLName    xml.Name          `xml:"dataRoot"`
	DataCenter obsTreeDataCenter `xml:"dataCenter"`
}

type obsTreeDataCenter struct {
	ID       string           `xml:"id,attr"`
	Name     string           `xml:"name,attr"`
	Missions []obsTreeMission `xml:"mission"`
}

type obsTreeMission struct {
	ID          string              `xml:"id,attr"`
	Name        string              `xml:"name,attr"`
	Description string              `xml:"desc,attr"`
	Target      string              `xml:"target,attr"`
	Instruments []obsTreeInstrument `xml:"instrument"`
}

type obsTreeInstrument struct {
	ID       string           `xml:"id,attr"`
	Name     string           `xml:"name,attr"`
	Datasets []obsTreeDataset `xml:"dataset"`
}

type obsTreeDataset struct {
	ID         string             `xml:"id,attr"`
	Name       string             `xml:"name,attr"`
	DataStart  string             `xml:"dataStart,attr"`
	DataStop   string             `xml:"dataStop,attr"`
	Sampling   string             `xml:"sampling,attr"`
	DataSource string             `xml:"dataSource,attr"`
	Parameters []obsTreeParameter `xml:"parameter"`
}

type obsTreeParameter struct {
	ID          string             `xml:"id,attr"`
	Name        string             `xml:"name,attr"`
	Units       string             `xml:"units,attr"`
	Description string             `xml:"description,attr"`
	DisplayType string             `xml:"display_type,attr"`
	FillValue   string             `xml:"fillValue,attr"`
	Components  []obsTreeComponent `xml:"component"`
}

type obsTreeComponent struct {
	ID    string `xml:"id,attr"`
	Name  string `xml:"name,attr"`
	Index string `xml:"Index1,attr"`
}

// parseObsTree decodes the observatory tree document into catalog
// descriptors.
func parseObsTree(doc []byte) ([]*heliocat.Mission, error) {
	tree := new(obsTreeDoc)
	if err := xml.Unmarshal(doc, tree); err != nil {
		return nil, fmt.Errorf("amda: parsing observatory tree: %v", err)
	}
	var missions []*heliocat.Mission
	for _, m := range tree.DataCenter.Missions {
		mission := &heliocat.Mission{
			ID:          m.ID,
			Name:        m.Name,
			Description: m.Description,
		}
		for _, in := range m.Instruments {
			instrument := &heliocat.Instrument{
				ID:        in.ID,
				Name:      in.Name,
				MissionID: m.ID,
			}
			for _, d := range in.Datasets {
				ds, err := convertDataset(d, m.ID, in.ID)
				if err != nil {
					return nil, err
				}
				instrument.Datasets = append(instrument.Datasets, ds)
			}
			mission.Instruments = append(mission.Instruments, instrument)
		}
		missions = append(missions, mission)
	}
	return missions, nil
}

func convertDataset(d obsTreeDataset, missionID, instrumentID string) (*heliocat.Dataset, error) {
	start, err := parseObsTreeDate(d.DataStart)
	if err != nil {
		return nil, fmt.Errorf("amda: dataset %s: bad dataStart %q", d.ID, d.DataStart)
	}
	stop, err := parseObsTreeDate(d.DataStop)
	if err != nil {
		return nil, fmt.Errorf("amda: dataset %s: bad dataStop %q", d.ID, d.DataStop)
	}
	ds := &heliocat.Dataset{
		ID:           d.ID,
		Name:         d.Name,
		MissionID:    missionID,
		InstrumentID: instrumentID,
		Start:        start,
		Stop:         stop,
		Sampling:     parseSampling(d.Sampling),
	}
	for _, p := range d.Parameters {
		param := &heliocat.Parameter{
			ID:          p.ID,
			Name:        p.Name,
			Units:       p.Units,
			Description: p.Description,
			DisplayType: p.DisplayType,
			DatasetID:   d.ID,
		}
		if p.FillValue != "" {
			if f, err := strconv.ParseFloat(p.FillValue, 64); err == nil {
				param.FillValue = &f
			}
		}
		for _, c := range p.Components {
			idx, _ := strconv.Atoi(c.Index)
			param.Components = append(param.Components, heliocat.Component{
				ID:    c.ID,
				Name:  c.Name,
				Index: idx,
			})
		}
		ds.Parameters = append(ds.Parameters, param)
	}
	return ds, nil
}

// parseObsTreeDate parses a coverage bound. The MissionDependent sentinel
// and an empty attribute both mean the bound is open.
func parseObsTreeDate(s string) (time.Time, error) {
	if s == "" || s == missionDependent {
		return time.Time{}, nil
	}
	if t, err := time.Parse(obsTreeDateFormat, s); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02T15:04:05", s)
}

// parseSampling parses the sampling attribute, given in seconds.
func parseSampling(s string) time.Duration {
	if s == "" {
		return 0
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return time.Duration(f * float64(time.Second))
}
