package contracts

var (
	allTiers        = []Tier{TierEssential, TierProfessional, TierEnterprise}
	professionalUp  = []Tier{TierProfessional, TierEnterprise}
	enterpriseOnly  = []Tier{TierEnterprise}
	defaultCategory = []Category{
		{Key: "dates_parties", Label: "Core dates & parties"},
		{Key: "financial_basic", Label: "Financial terms"},
		{Key: "termination_basic", Label: "Termination & renewal"},
		{Key: "liability_basic", Label: "Liability & risk"},
		{Key: "performance_basic", Label: "Performance & obligations"},
		{Key: "ip_basic", Label: "Intellectual property"},
		{Key: "compliance_basic", Label: "Compliance & dispute"},
		{Key: "administrative_basic", Label: "Administrative"},
		{Key: "payment_workflow", Label: "Payment workflow"},
		{Key: "compliance_extended", Label: "Compliance (extended)"},
		{Key: "performance_extended", Label: "Performance (extended)"},
		{Key: "risk_management", Label: "Risk management"},
		{Key: "termination_extended", Label: "Termination (extended)"},
		{Key: "ip_extended", Label: "Intellectual property (extended)"},
		{Key: "commercial_terms", Label: "Commercial terms"},
		{Key: "relationship_terms", Label: "Relationship terms"},
	}
)

var defaultFields = []FieldDefinition{
	{Key: "effective_date", Category: "dates_parties", Tiers: allTiers, ValueType: ValueDate, Hint: "Contract START date / Effective date, near document start"},
	{Key: "expiration_date", Category: "dates_parties", Tiers: allTiers, ValueType: ValueDate, Hint: "Contract END date / Expiration date"},
	{Key: "parties", Category: "dates_parties", Tiers: allTiers, ValueType: ValueList, Derived: true, Hint: "Names of all parties/entities in the contract, stated in the preamble and the signature block"},

	{Key: "total_contract_value", Category: "financial_basic", Tiers: allTiers, ValueType: ValueMoney, Derived: true, Hint: "Total monetary value of the contract (calculate if needed)"},
	{Key: "payment_terms", Category: "financial_basic", Tiers: allTiers, ValueType: ValueText, Derived: true, Hint: "Payment schedule and terms (e.g., Net 30, monthly)"},
	{Key: "currency", Category: "financial_basic", Tiers: allTiers, ValueType: ValueText, Hint: "Currency used (USD, EUR, GBP, etc.)"},

	{Key: "termination_notice_period", Category: "termination_basic", Tiers: allTiers, ValueType: ValueText, Hint: "Notice period required to terminate"},
	{Key: "renewal_terms", Category: "termination_basic", Tiers: allTiers, ValueType: ValueText, Derived: true, Hint: "Auto-renewal conditions, renewal options"},
	{Key: "governing_law", Category: "termination_basic", Tiers: allTiers, ValueType: ValueText, Hint: "Jurisdiction / Governing law / Choice of law"},

	{Key: "liability_cap", Category: "liability_basic", Tiers: professionalUp, ValueType: ValueMoney, Hint: "Maximum liability amount or percentage cap"},
	{Key: "indemnification_clauses", Category: "liability_basic", Tiers: professionalUp, ValueType: ValueText, Hint: "Who indemnifies whom and for what"},
	{Key: "insurance_requirements", Category: "liability_basic", Tiers: professionalUp, ValueType: ValueText, Hint: "Required insurance types and minimum amounts"},
	{Key: "limitation_of_liability", Category: "liability_basic", Tiers: professionalUp, ValueType: ValueText, Hint: "Exclusions, carve-outs from liability limits"},

	{Key: "deliverables", Category: "performance_basic", Tiers: professionalUp, ValueType: ValueList, Derived: true, Hint: "Key deliverables, milestones, or work products"},
	{Key: "sla_terms", Category: "performance_basic", Tiers: professionalUp, ValueType: ValueText, Derived: true, Hint: "Service Level Agreement terms and commitments"},
	{Key: "performance_metrics", Category: "performance_basic", Tiers: professionalUp, ValueType: ValueText, Hint: "KPIs, penalties for non-performance"},
	{Key: "acceptance_criteria", Category: "performance_basic", Tiers: professionalUp, ValueType: ValueText, Hint: "How deliverables/work is accepted"},

	{Key: "ip_ownership", Category: "ip_basic", Tiers: professionalUp, ValueType: ValueText, Hint: "Who owns intellectual property created"},
	{Key: "license_scope", Category: "ip_basic", Tiers: enterpriseOnly, ValueType: ValueText, Hint: "License type (exclusive, non-exclusive, perpetual)"},
	{Key: "usage_restrictions", Category: "ip_basic", Tiers: enterpriseOnly, ValueType: ValueText, Hint: "Geographic, industry, or use-case limitations"},

	{Key: "confidentiality_period", Category: "compliance_basic", Tiers: enterpriseOnly, ValueType: ValueText, Hint: "Duration of confidentiality/NDA obligations"},
	{Key: "non_compete_terms", Category: "compliance_basic", Tiers: enterpriseOnly, ValueType: ValueText, Hint: "Non-compete restrictions and duration"},
	{Key: "arbitration_clause", Category: "compliance_basic", Tiers: enterpriseOnly, ValueType: ValueText, Hint: "Dispute resolution method (arbitration, mediation, litigation)"},
	{Key: "audit_rights", Category: "compliance_basic", Tiers: enterpriseOnly, ValueType: ValueText, Hint: "Right to audit records, financials, or compliance"},
	{Key: "data_protection", Category: "compliance_basic", Tiers: enterpriseOnly, ValueType: ValueText, Hint: "GDPR, CCPA, or other data privacy obligations"},

	{Key: "notice_address", Category: "administrative_basic", ValueType: ValueText, Hint: "Address for official notices/communications"},
	{Key: "amendment_process", Category: "administrative_basic", ValueType: ValueText, Hint: "How the contract can be modified"},
	{Key: "assignment_rights", Category: "administrative_basic", ValueType: ValueText, Hint: "Whether contract can be assigned/transferred"},
	{Key: "force_majeure", Category: "administrative_basic", ValueType: ValueText, Hint: "Force majeure clause presence and terms"},

	{Key: "late_fees", Category: "payment_workflow", ValueType: ValueText, Hint: "Late payment penalties, interest rates, or fee structures"},
	{Key: "payment_milestones", Category: "payment_workflow", ValueType: ValueTable, Derived: true, Hint: "Milestone-based payment schedule and triggers, as a table of milestone, amount and due date"},
	{Key: "invoice_frequency", Category: "payment_workflow", ValueType: ValueText, Hint: "How often invoices are submitted (monthly, quarterly, etc.)"},
	{Key: "dispute_procedures", Category: "payment_workflow", ValueType: ValueText, Hint: "Process for disputing invoices or payments"},
	{Key: "escrow_terms", Category: "payment_workflow", ValueType: ValueText, Hint: "Escrow arrangements, holdbacks, or retainage terms"},

	{Key: "gdpr_obligations", Category: "compliance_extended", ValueType: ValueText, Hint: "Specific GDPR compliance requirements and data handling"},
	{Key: "ccpa_compliance", Category: "compliance_extended", ValueType: ValueText, Hint: "California Consumer Privacy Act requirements"},
	{Key: "security_standards", Category: "compliance_extended", ValueType: ValueList, Hint: "Required security certifications (SOC2, ISO27001, etc.)"},
	{Key: "audit_frequency", Category: "compliance_extended", ValueType: ValueText, Hint: "How often audits can be conducted"},
	{Key: "certification_requirements", Category: "compliance_extended", ValueType: ValueList, Hint: "Required certifications or qualifications"},

	{Key: "penalties", Category: "performance_extended", ValueType: ValueText, Hint: "Financial penalties for non-performance or SLA breaches"},
	{Key: "cure_periods", Category: "performance_extended", ValueType: ValueText, Hint: "Time allowed to remedy breaches before termination"},
	{Key: "escalation_procedures", Category: "performance_extended", ValueType: ValueText, Hint: "How disputes or issues are escalated"},
	{Key: "change_order_process", Category: "performance_extended", ValueType: ValueText, Hint: "Procedure for scope changes and modifications"},
	{Key: "warranty_terms", Category: "performance_extended", ValueType: ValueText, Hint: "Warranty period, coverage, and limitations"},

	{Key: "risk_allocation", Category: "risk_management", ValueType: ValueText, Hint: "How risks are divided between parties"},
	{Key: "contingency_provisions", Category: "risk_management", ValueType: ValueText, Hint: "Backup plans or contingency clauses"},
	{Key: "material_breach_definition", Category: "risk_management", ValueType: ValueText, Hint: "What constitutes a material breach"},
	{Key: "remedies", Category: "risk_management", ValueType: ValueText, Derived: true, Hint: "Available remedies for breach (damages, specific performance)"},

	{Key: "termination_for_cause", Category: "termination_extended", ValueType: ValueText, Hint: "Grounds for termination due to breach or default"},
	{Key: "termination_for_convenience", Category: "termination_extended", ValueType: ValueText, Hint: "Right to terminate without cause"},
	{Key: "transition_assistance", Category: "termination_extended", ValueType: ValueText, Hint: "Obligations to help transition to new provider"},
	{Key: "survival_clauses", Category: "termination_extended", ValueType: ValueText, Hint: "Provisions that survive contract termination"},

	{Key: "background_ip", Category: "ip_extended", ValueType: ValueText, Hint: "Pre-existing intellectual property each party brings"},
	{Key: "foreground_ip", Category: "ip_extended", ValueType: ValueText, Hint: "New IP created during the contract"},
	{Key: "joint_ip", Category: "ip_extended", ValueType: ValueText, Hint: "Jointly developed intellectual property ownership"},
	{Key: "moral_rights_waiver", Category: "ip_extended", ValueType: ValueText, Hint: "Waiver of moral rights to creative works"},
	{Key: "source_code_escrow", Category: "ip_extended", ValueType: ValueText, Hint: "Source code escrow arrangements for software"},

	{Key: "exclusivity", Category: "commercial_terms", ValueType: ValueText, Hint: "Exclusive dealing or exclusivity provisions"},
	{Key: "territory_restrictions", Category: "commercial_terms", ValueType: ValueText, Hint: "Geographic limitations on rights or operations"},
	{Key: "volume_commitments", Category: "commercial_terms", ValueType: ValueText, Hint: "Minimum purchase or volume requirements"},
	{Key: "price_adjustments", Category: "commercial_terms", ValueType: ValueText, Hint: "Price escalation clauses or adjustment mechanisms"},
	{Key: "benchmarking_rights", Category: "commercial_terms", ValueType: ValueText, Hint: "Right to benchmark pricing against market"},

	{Key: "subcontracting_rights", Category: "relationship_terms", ValueType: ValueText, Hint: "Whether and how subcontracting is permitted"},
	{Key: "key_personnel", Category: "relationship_terms", ValueType: ValueList, Hint: "Named individuals critical to performance"},
	{Key: "governance_structure", Category: "relationship_terms", ValueType: ValueText, Hint: "Joint steering committees or governance bodies"},
	{Key: "reporting_requirements", Category: "relationship_terms", ValueType: ValueText, Hint: "Required reports, frequency, and format"},
}

// DefaultTaxonomy builds the standard contract field bank: 66 fields in 16
// categories, with 9 essential, 18 professional and 25 enterprise fields.
// Fields outside every tier are available to custom selections.
func DefaultTaxonomy() *Taxonomy {
	t, err := NewTaxonomy(defaultCategory, defaultFields)
	if err != nil {
		panic("contracts: default taxonomy: " + err.Error())
	}
	return t
}
