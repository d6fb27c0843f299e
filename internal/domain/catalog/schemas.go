package catalog

// DefaultSchemas returns the entity catalog entries for the domain's replicated tables:
// maintenance orders, quotations, customers and vehicles. photo_data is deliberately absent —
// it is dispatched through the photo store, never through the generic row path.
func DefaultSchemas() []Schema {
	return []Schema{
		ordersSchema(),
		quotationsSchema(),
		customersSchema(),
		vehiclesSchema(),
	}
}

func ordersSchema() Schema {
	return Schema{
		TableName:  "orders",
		PrimaryKey: []KeyColumn{{Name: "order_uid", Type: ScalarString}},
		Columns: []string{
			"order_uid",
			"quotation_uid",
			"vehicle_uid",
			"customer_uid",
			"status",
			"total_amount",
			"notes",
			"created_at",
			"updated_at",
		},
	}
}

func quotationsSchema() Schema {
	return Schema{
		TableName:  "quotations",
		PrimaryKey: []KeyColumn{{Name: "quotation_uid", Type: ScalarString}},
		Columns: []string{
			"quotation_uid",
			"vehicle_uid",
			"customer_uid",
			"status",
			"estimated_amount",
			"notes",
			"created_at",
			"updated_at",
		},
	}
}

func customersSchema() Schema {
	return Schema{
		TableName:  "customers",
		PrimaryKey: []KeyColumn{{Name: "customer_uid", Type: ScalarString}},
		Columns: []string{
			"customer_uid",
			"name",
			"phone",
			"email",
			"address",
			"created_at",
			"updated_at",
		},
	}
}

func vehiclesSchema() Schema {
	return Schema{
		TableName:  "vehicles",
		PrimaryKey: []KeyColumn{{Name: "vehicle_uid", Type: ScalarString}},
		Columns: []string{
			"vehicle_uid",
			"customer_uid",
			"plate_number",
			"make",
			"model",
			"color",
			"created_at",
			"updated_at",
		},
	}
}
