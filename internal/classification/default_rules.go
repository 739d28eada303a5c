package classification

import (
	"fmt"

	"github.com/Veraticus/rd-classifier/internal/model"
)

// Concession labels assigned by the mapping rules.
const (
	ConcessionDigital = "กระทรวงดิจิทัล"
	ConcessionNBTC    = "กสทช"
	ConcessionNT      = "NT"
	ConcessionNTOwned = "สัมปทาน NT"
	ConcessionNonNT   = "ไม่ใช่สัมปทาน NT"
)

// Line types referenced by the default group rules.
const (
	LineCoaxial        = "เส้นทองแดง(Coaxial)"
	LineCopperDropwire = "เส้นทองแดง(Dropwire)"
	LineCopperCU       = "เส้นทองแดง(CU)"
	LineFiberDropwire  = "เส้นใยแก้วนำแสง(dropwire)"
	LineFiberADSS      = "เส้นใยแก้วนำแสง(ADSS)"
	LineFiberARSS      = "เส้นใยแก้วนำแสง(ARSS)"
	LineFiberFig8      = "เส้นใยแก้วนำแสง(Fig.8)"
)

// DigitalList holds owners belonging to the Ministry of Digital Economy.
var DigitalList = []string{
	"กระทรวงดิจิทัลเพื่อเศรษฐกิจและสังคม",
	"กระทรวงดิจิทัลเศรษฐกิจและสังคมตรวจสอบเส้นทางแล้ว",
}

// NBTCList holds NBTC-registered owners.
var NBTCList = []string{"NBTC/CAT", "NBTC/TOT"}

// NTList holds owners that are NT itself, including migrated records.
var NTList = []string{
	"-",
	"บริษัท กสท โทรคมนาคม จำกัด(มหาชน)",
	"บริษัท ทีโอที จำกัด(มหาชน)",
	"ย้ายข้อมูลจากTAMS1",
	"Cleansing ข้อมูลสายสื่อสาร",
	"บริษัท โทรคมนาคมแห่งชาติ จำกัด (มหาชน)",
}

// NTConcessionList holds owners operating under an NT concession.
var NTConcessionList = []string{
	"บริษัท ทีทีแอนด์ที จำกัด (มหาชน)",
	"บริษัท แอดวานซ์ อินโฟร์เซอร์วิส จำกัด (มหาชน)",
	"CAT-TAC #สัมปทาน",
	"TOT/AIS #สัมปทาน",
	"TOT-TT&T #สัมปทาน",
	"บริษัท โทเทิ่ล แอ็คเซ็ส คอมมูนิเคชั่น จำกัด (มหาชน)",
	"บริษัท บีเอฟเคที จำกัด",
}

// NonNTConcessionList holds owners outside any NT concession.
var NonNTConcessionList = []string{
	"Big Patrol",
	"CAT-SINET #สัมปทาน",
	"CAT-TRUE #สัมปทาน",
	"เคเบิ้ลทีวี (รวม)",
	"บริษัท เอแอลที เทเลคอม จำกัด (มหาชน)",
	"บริษัท แอดวานซ์ ไวร์เลส เน็ทเวอร์ค จำกัด",
	"บริษัท ไซแมท เทคโนโลยี จำกัด (มหาชน)",
	"บริษัท ดีแทค ไตรเน็ต จำกัด",
	"บริษัท ทริปเปิลที บรอดแบนด์ จำกัด (มหาชน)",
	"บริษัท ทริปเปิลที อินเทอร์เน็ต จำกัด",
	"บริษัท ทรู มูฟ เอช ยูนิเวอร์แซล คอมมิวนิเคชั่น จำกัด",
	"บริษัท ทรู มูฟ จำกัด (มหาชน)",
	"บริษัท ทรู อินเทอร์เน็ต คอร์ปอเรชั่น จำกัด",
	"บริษัท พีทีที  ไอซีที โซลูชั่น จำกัด",
	"บริษัท ยูไนเต็ด อินฟอร์เมชั่น ไฮเวย์ จำกัด",
	"บริษัท อินเตอร์ลิ้งค์ เทเลคอม จำกัด (มหาชน)",
	"บริษัท ฮัทชิสัน ซีเอที ไวร์เลส มัลติมีเดีย จำกัด",
	"สำนักงานบริหารเทคโนโลยีสารสนเทศเพื่อพัฒนาการศึกษา (สกอ.)",
}

// cond panics on a malformed built-in condition.
func cond(column string, op model.Operator, value model.Operand) model.Condition {
	c, err := model.NewCondition(column, op, value)
	if err != nil {
		panic(fmt.Sprintf("default rule on %s: %v", column, err))
	}
	return c
}

func eq(column, value string) model.Condition {
	return cond(column, model.OpEquals, model.NewScalar(value))
}

func concessionIs(label string) model.Condition {
	return eq(string(model.FieldGroupConcession), label)
}

func lineTypeIs(lineType string) model.Condition {
	return eq(model.ColumnLineType, lineType)
}

// MappingRules map the raw Concession owner onto a GroupConcession label.
// They run before every group rule.
func MappingRules() []model.Rule {
	mapping := func(id, label string, owners []string) model.Rule {
		return model.Rule{
			ID:          id,
			Name:        label,
			ResultValue: label,
			TargetField: model.FieldGroupConcession,
			Priority:    0,
			Conditions: []model.Condition{
				cond(model.ColumnConcession, model.OpInList, model.NewList(owners...)),
			},
		}
	}

	return []model.Rule{
		mapping("map-digital", ConcessionDigital, DigitalList),
		mapping("map-nbtc", ConcessionNBTC, NBTCList),
		mapping("map-nt", ConcessionNT, NTList),
		mapping("map-nt-concession", ConcessionNTOwned, NTConcessionList),
		mapping("map-non-nt-concession", ConcessionNonNT, NonNTConcessionList),
	}
}

// DefaultRD03Rules returns the built-in RD03 rule set.
func DefaultRD03Rules() []model.Rule {
	group := []model.Rule{
		{ID: "1.1", Name: "กระทรวงดิจิทัล", Priority: 1, Conditions: []model.Condition{
			concessionIs(ConcessionDigital),
		}},
		{ID: "1.2", Name: "กสทช", Priority: 2, Conditions: []model.Condition{
			concessionIs(ConcessionNBTC),
		}},
		{ID: "1.3", Name: "Coaxial Cable", Priority: 3, Conditions: []model.Condition{
			lineTypeIs(LineCoaxial),
		}},
		{ID: "1.4", Name: "ไม่ใช่สัมปทาน NT", Priority: 4, Conditions: []model.Condition{
			concessionIs(ConcessionNonNT),
		}},
		{ID: "1.4", Name: "สัมปทาน NT (ADSS/ARSS/Dropwire)", Priority: 5, Conditions: []model.Condition{
			concessionIs(ConcessionNTOwned),
			cond(model.ColumnLineType, model.OpInList, model.NewList(LineFiberADSS, LineFiberARSS, LineFiberDropwire)),
		}},
		{ID: "2.1.2", Name: "NT Copper Dropwire", Priority: 10, Conditions: []model.Condition{
			concessionIs(ConcessionNT),
			lineTypeIs(LineCopperDropwire),
		}},
		{ID: "2.2.1", Name: "NT Fiber Dropwire (Small & Short)", Priority: 11, Conditions: []model.Condition{
			concessionIs(ConcessionNT),
			lineTypeIs(LineFiberDropwire),
			cond(model.ColumnDiameter, model.OpBetween, model.NewRange(5, 8)),
			cond(model.ColumnCores, model.OpInList, model.NewList("1", "2")),
			cond(model.ColumnDistance, model.OpBetween, model.NewRange(0.0001, 0.5)),
		}},
		{ID: "2.2.3", Name: "NT Fiber Dropwire (Large or Long)", Priority: 12, Conditions: []model.Condition{
			concessionIs(ConcessionNT),
			lineTypeIs(LineFiberDropwire),
			cond(model.ColumnCores, model.OpInList, model.NewList("1", "2")),
			cond(model.ColumnDistance, model.OpBetween, model.NewRange(0.50001, 999999)),
		}},
		{ID: "3.1.2", Name: "NT Copper CU", Priority: 20, Conditions: []model.Condition{
			concessionIs(ConcessionNT),
			lineTypeIs(LineCopperCU),
		}},
		{ID: "4.1.1", Name: "NT Fig.8 Standard Spec", Priority: 30, Conditions: []model.Condition{
			concessionIs(ConcessionNT),
			lineTypeIs(LineFiberFig8),
		}},
		{ID: "4.2.1", Name: "NT ADSS Standard Spec", Priority: 31, Conditions: []model.Condition{
			concessionIs(ConcessionNT),
			lineTypeIs(LineFiberADSS),
		}},
	}

	return withGroupTarget(MappingRules(), group)
}

// DefaultRD05Rules returns the built-in RD05 rule set. Rule 3.0 has no
// conditions and catches every remaining row.
func DefaultRD05Rules() []model.Rule {
	group := []model.Rule{
		{ID: "1.1", Name: "กระทรวงดิจิทัล", Priority: 1, Conditions: []model.Condition{
			concessionIs(ConcessionDigital),
		}},
		{ID: "2.1", Name: "NT Fiber Dropwire (Short)", Priority: 2, Conditions: []model.Condition{
			concessionIs(ConcessionNT),
			lineTypeIs(LineFiberDropwire),
			cond(model.ColumnDiameter, model.OpBetween, model.NewRange(5, 8)),
			cond(model.ColumnDistance, model.OpBetween, model.NewRange(0.0001, 0.4999)),
		}},
		{ID: "2.2", Name: "NT Copper Dropwire", Priority: 3, Conditions: []model.Condition{
			concessionIs(ConcessionNT),
			lineTypeIs(LineCopperDropwire),
		}},
		{ID: "3.0", Name: "Default Others", Priority: 100},
	}

	return withGroupTarget(MappingRules(), group)
}

func withGroupTarget(mapping, group []model.Rule) []model.Rule {
	rules := make([]model.Rule, 0, len(mapping)+len(group))
	rules = append(rules, mapping...)
	for _, r := range group {
		r.TargetField = model.FieldGroup
		rules = append(rules, r)
	}
	return rules
}
