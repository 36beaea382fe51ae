package warehouse

type tableDDL struct {
	name string
	ddl  string
}

var schema = []tableDDL{
	{"staging_sales", `
		CREATE TABLE IF NOT EXISTS staging_sales (
			batch_date DATE NOT NULL,
			line_id BIGINT NOT NULL,
			order_date DATE NOT NULL,
			ship_date DATE NOT NULL,
			order_number BIGINT NOT NULL,
			order_line_number BIGINT NOT NULL,
			product_code TEXT NOT NULL,
			product_line TEXT NOT NULL DEFAULT '',
			suggested_retail_price BIGINT NOT NULL DEFAULT 0,
			price_each NUMERIC(10,2) NOT NULL DEFAULT 0,
			customer_id BIGINT NOT NULL,
			customer_name TEXT NOT NULL DEFAULT '',
			city TEXT NOT NULL DEFAULT '',
			country TEXT NOT NULL DEFAULT '',
			territory TEXT NOT NULL DEFAULT '',
			contact_lastname TEXT NOT NULL DEFAULT '',
			contact_firstname TEXT NOT NULL DEFAULT '',
			quantity_ordered BIGINT NOT NULL DEFAULT 0,
			sales NUMERIC(10,2) NOT NULL DEFAULT 0,
			status TEXT NOT NULL DEFAULT '',
			PRIMARY KEY (batch_date, line_id)
		)
	`},
	{"dim_date", `
		CREATE TABLE IF NOT EXISTS dim_date (
			date_pk INTEGER PRIMARY KEY,
			date DATE NOT NULL UNIQUE,
			day_of_week SMALLINT NOT NULL,
			day_of_month SMALLINT NOT NULL,
			day_of_year SMALLINT NOT NULL,
			week_of_year SMALLINT NOT NULL,
			month SMALLINT NOT NULL,
			quarter SMALLINT NOT NULL,
			year SMALLINT NOT NULL,
			is_weekday BOOLEAN NOT NULL
		)
	`},
	{"dim_products", `
		CREATE TABLE IF NOT EXISTS dim_products (
			product_pk BIGINT GENERATED BY DEFAULT AS IDENTITY PRIMARY KEY,
			product_code TEXT NOT NULL,
			product_line TEXT NOT NULL,
			suggested_retail_price BIGINT NOT NULL,
			price_each NUMERIC(10,2) NOT NULL,
			start_date DATE NOT NULL,
			end_date DATE NOT NULL,
			is_current BOOLEAN NOT NULL,
			CHECK (start_date <= end_date)
		)
	`},
	{"dim_products_one_current_idx", `
		CREATE UNIQUE INDEX IF NOT EXISTS dim_products_one_current_idx ON dim_products (product_code) WHERE is_current
	`},
	{"dim_customers", `
		CREATE TABLE IF NOT EXISTS dim_customers (
			customer_pk BIGINT GENERATED BY DEFAULT AS IDENTITY PRIMARY KEY,
			customer_id BIGINT NOT NULL,
			customer_name TEXT NOT NULL,
			city TEXT NOT NULL,
			country TEXT NOT NULL,
			territory TEXT NOT NULL,
			contact_lastname TEXT NOT NULL,
			contact_firstname TEXT NOT NULL,
			start_date DATE NOT NULL,
			end_date DATE NOT NULL,
			is_current BOOLEAN NOT NULL,
			CHECK (start_date <= end_date)
		)
	`},
	{"dim_customers_one_current_idx", `
		CREATE UNIQUE INDEX IF NOT EXISTS dim_customers_one_current_idx ON dim_customers (customer_id) WHERE is_current
	`},
	{"dim_status", `
		CREATE TABLE IF NOT EXISTS dim_status (
			status_pk BIGINT GENERATED BY DEFAULT AS IDENTITY PRIMARY KEY,
			status TEXT NOT NULL,
			start_date DATE NOT NULL,
			end_date DATE NOT NULL,
			is_current BOOLEAN NOT NULL,
			CHECK (start_date <= end_date)
		)
	`},
	{"dim_status_one_current_idx", `
		CREATE UNIQUE INDEX IF NOT EXISTS dim_status_one_current_idx ON dim_status (status) WHERE is_current
	`},
	{"fact_sales", `
		CREATE TABLE IF NOT EXISTS fact_sales (
			batch_date DATE NOT NULL,
			line_id BIGINT NOT NULL,
			order_date_fk INTEGER REFERENCES dim_date (date_pk),
			ship_date_fk INTEGER REFERENCES dim_date (date_pk),
			product_fk BIGINT REFERENCES dim_products (product_pk),
			customer_fk BIGINT REFERENCES dim_customers (customer_pk),
			status_fk BIGINT REFERENCES dim_status (status_pk),
			order_number BIGINT NOT NULL,
			order_line_number BIGINT NOT NULL,
			quantity_ordered BIGINT NOT NULL,
			sales NUMERIC(10,2) NOT NULL,
			PRIMARY KEY (batch_date, line_id)
		)
	`},
	{"load_batches", `
		CREATE TABLE IF NOT EXISTS load_batches (
			batch_date DATE PRIMARY KEY,
			source_uri TEXT NOT NULL DEFAULT '',
			staged_rows INTEGER NOT NULL DEFAULT 0,
			fact_rows INTEGER NOT NULL DEFAULT 0,
			versions_closed INTEGER NOT NULL DEFAULT 0,
			versions_added INTEGER NOT NULL DEFAULT 0,
			null_references INTEGER NOT NULL DEFAULT 0,
			duration_ms DOUBLE PRECISION NOT NULL DEFAULT 0,
			detail TEXT NOT NULL DEFAULT '',
			loaded_at TIMESTAMP NOT NULL DEFAULT NOW()
		)
	`},
}
