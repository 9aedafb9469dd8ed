package catalog

import "github.com/zatekoja/facilitycollector/internal/domain/entities"

var healthServices = []Entry{
	{ID: "audiology", Name: "Audiology"},
	{ID: "cardiology", Name: "Cardiology"},
	{ID: "caregiverSupport", Name: "CaregiverSupport"},
	{ID: "covid19Vaccine", Name: "Covid19Vaccine"},
	{ID: "dental", Name: "Dental"},
	{ID: "dermatology", Name: "Dermatology"},
	{ID: "emergencyCare", Name: "EmergencyCare"},
	{ID: "gastroenterology", Name: "Gastroenterology"},
	{ID: "gynecology", Name: "Gynecology"},
	{ID: "mentalHealth", Name: "MentalHealth"},
	{ID: "nutrition", Name: "Nutrition"},
	{ID: "ophthalmology", Name: "Ophthalmology"},
	{ID: "optometry", Name: "Optometry"},
	{ID: "orthopedics", Name: "Orthopedics"},
	{ID: "podiatry", Name: "Podiatry"},
	{ID: "primaryCare", Name: "PrimaryCare"},
	{ID: "specialtyCare", Name: "SpecialtyCare"},
	{ID: "urgentCare", Name: "UrgentCare"},
	{ID: "urology", Name: "Urology"},
	{ID: "womensHealth", Name: "WomensHealth"},
}

var benefitsServices = []Entry{
	{ID: "applyingForBenefits", Name: "ApplyingForBenefits"},
	{ID: "burialClaimAssistance", Name: "BurialClaimAssistance"},
	{ID: "disabilityClaimAssistance", Name: "DisabilityClaimAssistance"},
	{ID: "eBenefitsRegistrationAssistance", Name: "eBenefitsRegistrationAssistance"},
	{ID: "educationAndCareerCounseling", Name: "EducationAndCareerCounseling"},
	{ID: "educationClaimAssistance", Name: "EducationClaimAssistance"},
	{ID: "familyMemberClaimAssistance", Name: "FamilyMemberClaimAssistance"},
	{ID: "homelessAssistance", Name: "HomelessAssistance"},
	{ID: "insuranceClaimAssistanceAndFinancialCounseling", Name: "InsuranceClaimAssistanceAndFinancialCounseling"},
	{ID: "integratedDisabilityEvaluationSystemAssistance", Name: "IntegratedDisabilityEvaluationSystemAssistance"},
	{ID: "pensions", Name: "Pensions"},
	{ID: "preDischargeClaimAssistance", Name: "PreDischargeClaimAssistance"},
	{ID: "transitionAssistance", Name: "TransitionAssistance"},
	{ID: "updatingDirectDepositInformation", Name: "UpdatingDirectDepositInformation"},
	{ID: "vaHomeLoanAssistance", Name: "VAHomeLoanAssistance"},
	{ID: "vocationalRehabilitationAndEmploymentAssistance", Name: "VocationalRehabilitationAndEmploymentAssistance"},
}

var otherServices = []Entry{
	{ID: "onlineScheduling", Name: "OnlineScheduling"},
}

// builtinAliases maps historical or feed-specific labels onto catalog ids.
var builtinAliases = map[string]string{
	"MentalHealthCare":                   "mentalHealth",
	"Mental health care":                 "mentalHealth",
	"DentalServices":                     "dental",
	"COVID-19 vaccines":                  "covid19Vaccine",
	"COVID-19 vaccine":                   "covid19Vaccine",
	"Caregiver support":                  "caregiverSupport",
	"Emergency":                          "emergencyCare",
	"Orthopedics/Podiatry":               "orthopedics",
	"Women's health":                     "womensHealth",
	"Primary Care (New Patient)":         "primaryCare",
	"VocationalRehabilitationAssistance": "vocationalRehabilitationAndEmploymentAssistance",
	"HomeLoanAssistance":                 "vaHomeLoanAssistance",
	"Appointment scheduling online":      "onlineScheduling",
}

func builtinEntries() []Entry {
	out := make([]Entry, 0, len(healthServices)+len(benefitsServices)+len(otherServices))
	add := func(list []Entry, c entities.ServiceCategory) {
		for _, e := range list {
			e.Category = c
			out = append(out, e)
		}
	}
	add(healthServices, entities.CategoryHealth)
	add(benefitsServices, entities.CategoryBenefits)
	add(otherServices, entities.CategoryOther)
	return out
}
