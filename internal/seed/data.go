package seed

// Static source data for the generators. Everything here is fictional.

var accountTypes = []string{"checking", "savings", "business"}

var firstNames = []string{
	"Alice", "Ben", "Carla", "Derek", "Elena", "Felix", "Grace", "Hassan",
	"Iris", "Jonas", "Keiko", "Liam", "Mara", "Nils", "Olga", "Pavel",
	"Quinn", "Rosa", "Samir", "Tara", "Ulrich", "Vera", "Wes", "Yara",
}

var lastNames = []string{
	"Abbott", "Berger", "Castillo", "Dunn", "Eriksen", "Fontaine", "Gupta",
	"Holt", "Ishida", "Jensen", "Kovacs", "Lindqvist", "Moreau", "Novak",
	"Okafor", "Petrov", "Reyes", "Silva", "Takeda", "Urban", "Vogel", "Weiss",
}

var foreignCountries = []string{"UK", "FR", "DE", "JP", "AU"}

var categories = []string{
	"groceries", "restaurants", "gas", "utilities", "entertainment",
	"shopping", "travel", "healthcare", "insurance", "online_services",
}

// Typical amount range per category, [min, max].
var amountRanges = map[string][2]float64{
	"groceries":       {15, 150},
	"restaurants":     {20, 100},
	"gas":             {30, 80},
	"utilities":       {50, 200},
	"entertainment":   {10, 100},
	"shopping":        {25, 300},
	"travel":          {100, 500},
	"healthcare":      {50, 400},
	"insurance":       {100, 500},
	"online_services": {5, 50},
}

var merchants = map[string][]string{
	"groceries":       {"FreshMart", "GreenGrocer", "QuickStop Market", "Corner Foods Co"},
	"restaurants":     {"The Local Bistro", "Pizza Palace", "Sushi Express", "Cafe Corner"},
	"gas":             {"QuickFuel", "EcoGas", "MainStreet Fuel", "Harbor Petrol"},
	"utilities":       {"City Power Co", "Water Works", "Internet Services Inc", "Metro Gas Supply"},
	"entertainment":   {"Cinema Plus", "StreamFlix", "GameZone", "Concert Hall"},
	"shopping":        {"MegaMart", "Fashion Outlet", "Tech Store", "Home Goods"},
	"travel":          {"Skyline Airlines", "Grand Hotel", "RentACar Pro", "Travel Agency"},
	"healthcare":      {"City Medical Center", "Pharmacy Plus", "Dental Care", "Vision Center"},
	"insurance":       {"SafeGuard Insurance", "Health Shield", "Auto Protect", "Life Secure"},
	"online_services": {"CloudStorage Co", "Software Suite", "Music Streaming", "News Portal"},
}

type policySpec struct {
	title    string
	category string
	content  string
}

// Fictional internal policy corpus retrieved during the draft step.
var policyDocuments = []policySpec{
	{
		title:    "Transaction Monitoring and Fraud Detection Policy",
		category: "fraud_detection",
		content: `This policy outlines procedures for monitoring customer transactions and detecting potentially fraudulent activity. Scope: all customer accounts across checking, savings, and business account types.

Monitoring criteria: single transactions exceeding $5,000; multiple transactions totaling over $10,000 within 24 hours; transactions occurring between 2 AM and 5 AM local time; transactions from foreign merchants without prior travel notification; transactions deviating significantly from established spending patterns.

Response protocol: flag the transaction for review, generate an anomaly report with supporting evidence, retrieve relevant policy documents for context, and draft a preliminary explanation. If confidence exceeds 70%, proceed with automated notification; below 70%, escalate to the human review team. All actions must be logged in the audit system with timestamps and decision rationale.`,
	},
	{
		title:    "Transaction Amount Limits by Account Type",
		category: "transaction_limits",
		content: `This document defines maximum transaction limits per account type. Checking accounts: $10,000 single, $20,000 daily, $100,000 monthly. Savings accounts: $5,000 single, $10,000 daily, $50,000 monthly, limited to six withdrawals per month. Business accounts: $50,000 single, $100,000 daily, $500,000 monthly, with higher limits available upon approval.

Customers may request temporary limit increases for purposes such as real estate purchases, business equipment procurement, or international travel. Requests must be submitted 48 hours in advance and require manager approval.`,
	},
	{
		title:    "Escalation Procedures for Anomalous Transactions",
		category: "escalation",
		content: `This policy defines when and how to escalate potentially fraudulent or anomalous transactions. Escalation triggers: automated confidence score below 70%; transaction amount exceeding account limits by more than 20%; multiple anomalies for the same customer within seven days; prior disputed transactions of a similar shape; high-risk merchant categories.

Level 1 (automated review): the system generates an explanation and recommendations, the customer receives an automated notification, and the transaction is monitored but not blocked. Level 2 (analyst review): assigned to a fraud analyst within four hours with a decision inside 24 hours. Level 3 (manager review): complex cases requiring policy interpretation, potential account closure, or regulatory implications, decided within 48 hours.

Every escalation must include the complete audit trail, the policy documents used in the assessment, the system-generated analysis, and the confidence scores with rationale.`,
	},
	{
		title:    "Customer Notification Requirements",
		category: "notifications",
		content: `This policy outlines requirements for notifying customers about account activity. Immediate notification is required for transactions exceeding $5,000, transactions flagged as potentially fraudulent, account access from an unrecognized device or location, and security setting changes.

Channels: email as the primary channel; SMS for amounts over $10,000 or high-priority alerts; mobile push for real-time critical alerts; phone calls only for confirmed fraud. Notifications must include the amount and merchant, the date and time, the last four digits of the account used, clear action steps, fraud department contact information, and a tracking reference. Automated notifications go out within five minutes of detection. Never include full account numbers, security questions, or links to external websites.`,
	},
	{
		title:    "Anomaly Detection Algorithm Parameters",
		category: "technical_specifications",
		content: `This document specifies the technical parameters of the anomaly detection system. Statistical thresholds: z-score of 3.0, a minimum of 30 historical data points, and a 90-day rolling window refreshed daily.

Feature weights: amount deviation 30%, time-of-day anomaly 20%, merchant category deviation 15%, geographic anomaly 15%, transaction frequency 10%, historical dispute rate 10%. Confidence scores range 0.0 to 1.0: 0.9 and above permits automated action, 0.7 to 0.89 automated with enhanced monitoring, 0.5 to 0.69 requires analyst review, and below 0.5 escalates to a senior analyst.`,
	},
	{
		title:    "Data Retention and Audit Trail Policy",
		category: "compliance",
		content: `This policy defines data retention requirements for transaction monitoring and audit trails. Retention periods: transaction records seven years, audit events seven years, customer communications five years, policy documents indefinitely with historical versions retained, and workflow execution logs three years.

Every workflow execution must log a unique run identifier, each step executed with inputs and outputs, tool invocations with durations, guardrail checks and their outcomes, and the final decision with its rationale. Audit records are append-only: they may never be modified or deleted inside their retention period, and access to the audit store is itself audited.`,
	},
}
