// Package profile defines the business-intake record and the analysis result
// shapes, and coerces loosely typed payloads into them.
package profile

// BusinessProfile is the validated intake record sent to the analyzer.
type BusinessProfile struct {
	BusinessName              string   `json:"businessName"`
	Industry                  string   `json:"industry"`
	BusinessModel             string   `json:"businessModel"`
	YearEstablished           string   `json:"yearEstablished"`
	TeamSize                  string   `json:"teamSize"`
	OperatingRegions          []string `json:"operatingRegions"`
	CoreOperations            string   `json:"coreOperations"`
	WorkflowChallenges        string   `json:"workflowChallenges"`
	ManualTasks               string   `json:"manualTasks"`
	CurrentTools              string   `json:"currentTools"`
	HasWebsite                bool     `json:"hasWebsite"`
	HasMobileApp              bool     `json:"hasMobileApp"`
	HasCRM                    bool     `json:"hasCRM"`
	HasERP                    bool     `json:"hasERP"`
	HasCloudSetup             bool     `json:"hasCloudSetup"`
	HasAdminTools             bool     `json:"hasAdminTools"`
	TechnologyStack           string   `json:"technologyStack"`
	CybersecurityPractices    string   `json:"cybersecurityPractices"`
	APIIntegrations           string   `json:"apiIntegrations"`
	ShortTermGoals            string   `json:"shortTermGoals"`
	LongTermGoals             string   `json:"longTermGoals"`
	UpcomingLaunches          string   `json:"upcomingLaunches"`
	AutomationAreas           string   `json:"automationAreas"`
	RevenueChallenges         string   `json:"revenueChallenges"`
	SalesMarketingChallenges  string   `json:"salesMarketingChallenges"`
	TechBottlenecks           string   `json:"techBottlenecks"`
	CustomerSupportChallenges string   `json:"customerSupportChallenges"`
	ComplianceConcerns        string   `json:"complianceConcerns"`
	TargetCustomers           string   `json:"targetCustomers"`
	Competitors               string   `json:"competitors"`
	DataFormat                string   `json:"dataFormat"`
	IndustrySpecificProcesses string   `json:"industrySpecificProcesses"`
	BudgetPreference          string   `json:"budgetPreference"`
	PreferredSolutionType     string   `json:"preferredSolutionType"`
	Deadline                  string   `json:"deadline"`
	HasDevTeam                bool     `json:"hasDevTeam"`
	ResourceConstraints       string   `json:"resourceConstraints"`
}

// CompanyName returns the display name used for stored analyses.
func (p BusinessProfile) CompanyName() string {
	if p.BusinessName == "" {
		return UnknownCompany
	}
	return p.BusinessName
}

// UnknownCompany labels records whose profile carries no business name.
const UnknownCompany = "Unknown Company"
