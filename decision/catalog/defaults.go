package catalog

// Focus areas of the built-in catalog.
const (
	FocusDigitalTransformation = "DT"
	FocusITModernization       = "ITM"
	FocusSecurityAssurance     = "SA"
	FocusCloudMigration        = "CM"
	FocusDataAnalytics         = "DA"
)

// Default returns the built-in snapshot. It panics only if the built-in tables are inconsistent.
func Default() *Snapshot {
	s, err := NewSnapshot(DefaultDocument(), "builtin")
	if err != nil {
		panic("built-in catalog is invalid: " + err.Error())
	}
	return s
}

// DefaultDocument returns a fresh copy of the built-in configuration.
func DefaultDocument() Document {
	return Document{
		Version:     "2024.1",
		Roles:       defaultRoles(),
		Modules:     defaultModules(),
		Multipliers: DefaultMultipliers(),
		Policy:      DefaultPolicy(),
	}
}

func DefaultMultipliers() Multipliers {
	return Multipliers{
		Complexity: map[Complexity]float64{
			ComplexitySmall:      0.7,
			ComplexityMedium:     1.0,
			ComplexityLarge:      1.6,
			ComplexityExtraLarge: 2.3,
		},
		Environment: map[string]float64{
			"development": 1.0,
			"staging":     1.2,
			"production":  1.5,
			"classified":  2.0,
		},
		Integration: map[string]float64{
			"standalone":           1.0,
			"light_integration":    1.2,
			"moderate_integration": 1.5,
			"heavy_integration":    2.0,
		},
		Geography: map[string]float64{
			"dc_metro":   1.2,
			"major_city": 1.1,
			"standard":   1.0,
			"rural":      0.9,
		},
		Clearance: map[string]float64{
			"none":         1.0,
			"public_trust": 1.1,
			"secret":       1.3,
			"top_secret":   1.6,
		},
	}
}

func DefaultPolicy() CostPolicy {
	return CostPolicy{
		ReserveRate:     0.15,
		OverheadRate:    0.20,
		OvertimePremium: 1.25,
	}
}

func defaultRoles() []Role {
	return []Role{
		{ID: "solution_architect", Name: "Solution Architect", BaseRate: 175},
		{ID: "technical_lead", Name: "Technical Lead", BaseRate: 150},
		{ID: "senior_engineer", Name: "Senior Engineer", BaseRate: 135},
		{ID: "engineer", Name: "Engineer", BaseRate: 110},
		{ID: "junior_engineer", Name: "Junior Engineer", BaseRate: 85},
		{ID: "project_manager", Name: "Project Manager", BaseRate: 140},
		{ID: "business_analyst", Name: "Business Analyst", BaseRate: 125},
		{ID: "security_specialist", Name: "Security Specialist", BaseRate: 160},
		{ID: "data_engineer", Name: "Data Engineer", BaseRate: 145},
		{ID: "cloud_architect", Name: "Cloud Architect", BaseRate: 165},
	}
}

func defaultModules() []Module {
	type h = map[string]float64
	return []Module{
		{
			ID: "dt_discovery", Name: "Discovery & Current State Mapping", FocusArea: FocusDigitalTransformation,
			BaseHoursByRole: h{"solution_architect": 40, "business_analyst": 80, "senior_engineer": 60, "project_manager": 30},
		},
		{
			ID: "dt_strategy", Name: "Digital Strategy Development", FocusArea: FocusDigitalTransformation,
			BaseHoursByRole: h{"solution_architect": 60, "business_analyst": 100, "project_manager": 40},
			Prerequisites:   []string{"dt_discovery"},
		},
		{
			ID: "itm_assessment", Name: "Legacy System Assessment", FocusArea: FocusITModernization,
			BaseHoursByRole: h{"solution_architect": 50, "technical_lead": 80, "senior_engineer": 120, "security_specialist": 40},
		},
		{
			ID: "itm_network_refresh", Name: "Network Core Refresh", FocusArea: FocusITModernization,
			BaseHoursByRole: h{"technical_lead": 100, "senior_engineer": 200, "engineer": 150, "project_manager": 50},
		},
		{
			ID: "itm_server_migration", Name: "Server Infrastructure Migration", FocusArea: FocusITModernization,
			BaseHoursByRole: h{"solution_architect": 60, "technical_lead": 80, "senior_engineer": 160, "engineer": 200, "project_manager": 60},
		},
		{
			ID: "sa_audit", Name: "Security Audit & Assessment", FocusArea: FocusSecurityAssurance,
			BaseHoursByRole: h{"security_specialist": 120, "senior_engineer": 80, "business_analyst": 40},
		},
		{
			ID: "sa_compliance", Name: "Compliance Framework Implementation", FocusArea: FocusSecurityAssurance,
			BaseHoursByRole: h{"security_specialist": 160, "solution_architect": 40, "business_analyst": 80, "project_manager": 60},
			Prerequisites:   []string{"sa_audit"},
		},
		{
			ID: "sa_license_audit", Name: "License Audit & Rightsizing", FocusArea: FocusSecurityAssurance,
			BaseHoursByRole: h{"business_analyst": 60, "senior_engineer": 40, "project_manager": 20},
		},
		{
			ID: "cm_assessment", Name: "Cloud Readiness Assessment", FocusArea: FocusCloudMigration,
			BaseHoursByRole: h{"cloud_architect": 80, "solution_architect": 40, "security_specialist": 60, "business_analyst": 40},
		},
		{
			ID: "cm_migration_plan", Name: "Cloud Migration Planning", FocusArea: FocusCloudMigration,
			BaseHoursByRole: h{"cloud_architect": 100, "solution_architect": 60, "project_manager": 80},
			Prerequisites:   []string{"cm_assessment"},
		},
		{
			ID: "cm_workload_migration", Name: "Workload Migration Execution", FocusArea: FocusCloudMigration,
			BaseHoursByRole: h{"cloud_architect": 60, "technical_lead": 100, "senior_engineer": 200, "engineer": 240, "project_manager": 80},
			Prerequisites:   []string{"cm_migration_plan"},
		},
		{
			ID: "da_discovery", Name: "Data Landscape Discovery", FocusArea: FocusDataAnalytics,
			BaseHoursByRole: h{"data_engineer": 80, "business_analyst": 100, "solution_architect": 40},
		},
		{
			ID: "da_pipeline", Name: "Data Pipeline Development", FocusArea: FocusDataAnalytics,
			BaseHoursByRole: h{"data_engineer": 160, "senior_engineer": 120, "engineer": 100, "project_manager": 40},
			Prerequisites:   []string{"da_discovery"},
		},
	}
}
