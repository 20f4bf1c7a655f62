package models

import "time"

// Preferences holds the owner-controlled feature flags.
type Preferences struct {
	ParticipateBenchmarking bool   `bson:"participate_benchmarking" json:"participateBenchmarking"`
	NotifyWhatsApp          bool   `bson:"notify_whatsapp" json:"notifyWhatsApp"`
	SpreadsheetID           string `bson:"spreadsheet_id,omitempty" json:"spreadsheetId,omitempty"`
}

// Owner is the driver all records belong to.
type Owner struct {
	ID          string      `bson:"_id" json:"id"`
	Name        string      `bson:"name" json:"name"`
	Phone       string      `bson:"phone,omitempty" json:"phone,omitempty"`
	Locale      string      `bson:"locale,omitempty" json:"locale,omitempty"`
	VehicleType string      `bson:"vehicle_type,omitempty" json:"vehicleType,omitempty"`
	TaxDocument string      `bson:"tax_document,omitempty" json:"taxDocument,omitempty"`
	Preferences Preferences `bson:"preferences" json:"preferences"`
	APIKeyHash  string      `bson:"api_key_hash" json:"-"`
	CreatedAt   time.Time   `bson:"created_at" json:"createdAt"`
	UpdatedAt   time.Time   `bson:"updated_at" json:"updatedAt"`
}
