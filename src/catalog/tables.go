package catalog

import "tenancymigrator/src/model"

func col(name string, kind Kind) Column     { return Column{Name: name, Type: Type{Kind: kind}} }
func req(name string, kind Kind) Column     { return Column{Name: name, Type: Type{Kind: kind}, NotNull: true} }
func enum(name string, values ...string) Column {
	return Column{Name: name, Type: EnumOf(values...), NotNull: true}
}

func fk(column, refTable, refColumn string) ForeignKey {
	return ForeignKey{Column: column, RefTable: refTable, RefColumn: refColumn}
}

func idx(name string, columns ...string) Index { return Index{Name: name, Columns: columns} }

// registry holds every table the platform owns, parents declared
// before children. The constant model.* enum values keep the catalog
// and the gorm models on the same declared sets.
var registry = []Table{
	{
		Name:       "users",
		Ownership:  OwnershipSystem,
		PrimaryKey: []string{"user_id"},
		Columns: []Column{
			req("user_id", Text),
			req("email", Text),
			col("hashed_password", Text),
			{Name: "role", Type: Type{Kind: Text}, NotNull: true, Default: "'user'"},
			{Name: "is_active", Type: Type{Kind: Integer}, NotNull: true, Default: "1"},
			col("created_utc", TimeUTC),
		},
		Indexes: []Index{{Name: "idx_users_email", Columns: []string{"email"}, Unique: true}},
	},
	{
		Name:       "api_keys",
		Ownership:  OwnershipSystem,
		PrimaryKey: []string{"key_id"},
		Columns: []Column{
			req("key_id", Text),
			req("user_id", Text),
			col("name", Text),
			req("token_hash", Text),
			{Name: "is_active", Type: Type{Kind: Integer}, NotNull: true, Default: "1"},
			col("created_utc", TimeUTC),
		},
		ForeignKeys: []ForeignKey{fk("user_id", "users", "user_id")},
		Indexes:     []Index{idx("idx_api_keys_user_id", "user_id")},
	},
	{
		Name:       "user_settings",
		Ownership:  OwnershipSystem,
		PrimaryKey: []string{"user_id"},
		Columns: []Column{
			req("user_id", Text),
			col("settings_json", JSON),
			col("updated_utc", TimeUTC),
		},
		ForeignKeys: []ForeignKey{fk("user_id", "users", "user_id")},
	},
	{
		// Canonical spelling for the shared bars table; the legacy
		// "bars" spelling is not declared and is left untouched.
		Name:       "market_bars",
		Ownership:  OwnershipSystem,
		PrimaryKey: []string{"bar_id"},
		Columns: []Column{
			req("bar_id", Text),
			req("symbol", Text),
			req("timeframe", Text),
			col("time_utc", TimeUTC),
			col("open", Float),
			col("high", Float),
			col("low", Float),
			col("close", Float),
			col("volume", Float),
		},
		Indexes: []Index{idx("idx_market_bars_symbol_time", "symbol", "time_utc")},
	},
	{
		Name:       "strategies",
		Ownership:  OwnershipOwned,
		PrimaryKey: []string{"strategy_id"},
		Columns: []Column{
			req("strategy_id", Text),
			req("name", Text),
			col("user_id", Text),
			col("created_utc", TimeUTC),
		},
		ForeignKeys: []ForeignKey{fk("user_id", "users", "user_id")},
		Indexes:     []Index{idx("idx_strategies_user_id", "user_id")},
	},
	{
		Name:       "strategy_instances",
		Ownership:  OwnershipOwned,
		PrimaryKey: []string{"instance_id"},
		Columns: []Column{
			req("instance_id", Text),
			req("strategy_id", Text),
			col("user_id", Text),
			col("created_utc", TimeUTC),
		},
		ForeignKeys: []ForeignKey{
			fk("strategy_id", "strategies", "strategy_id"),
			fk("user_id", "users", "user_id"),
		},
		Indexes: []Index{
			idx("idx_strategy_instances_strategy_id", "strategy_id"),
			idx("idx_strategy_instances_user_id", "user_id"),
		},
	},
	{
		Name:       "strategy_runs",
		Ownership:  OwnershipDerived,
		PrimaryKey: []string{"run_id"},
		Columns: []Column{
			req("run_id", Text),
			req("instance_id", Text),
			enum("run_type", model.RunTypeBacktest, model.RunTypeLive, model.RunTypePaper),
			col("start_utc", TimeUTC),
			col("end_utc", TimeUTC),
		},
		ForeignKeys:   []ForeignKey{fk("instance_id", "strategy_instances", "instance_id")},
		Indexes:       []Index{idx("idx_strategy_runs_instance_id", "instance_id")},
		OwnerParent:   "instance_id",
		TemporalPairs: [][2]string{{"start_utc", "end_utc"}},
	},
	{
		Name:       "trades",
		Ownership:  OwnershipDerived,
		PrimaryKey: []string{"trade_id"},
		Columns: []Column{
			req("trade_id", Text),
			req("run_id", Text),
			req("symbol", Text),
			enum("side", model.SideLong, model.SideShort),
			col("entry_time", TimeUTC),
			col("exit_time", TimeUTC),
			col("entry_price", Float),
			col("exit_price", Float),
			col("quantity", Float),
			col("pnl_net", Float),
			col("pnl_gross", Float),
			col("commission", Float),
			col("mae", Float),
			col("mfe", Float),
			col("duration_seconds", Integer),
			col("extra_json", JSON),
		},
		ForeignKeys:   []ForeignKey{fk("run_id", "strategy_runs", "run_id")},
		Indexes:       []Index{idx("idx_trades_run_id", "run_id")},
		OwnerParent:   "run_id",
		TemporalPairs: [][2]string{{"entry_time", "exit_time"}},
		Positive:      []string{"quantity"},
		NonNegative:   []string{"entry_price", "exit_price"},
	},
	{
		Name:       "run_series_bars",
		Ownership:  OwnershipDerived,
		PrimaryKey: []string{"bar_id"},
		Columns: []Column{
			req("bar_id", Text),
			req("run_id", Text),
			col("time_utc", TimeUTC),
			col("open", Float),
			col("high", Float),
			col("low", Float),
			col("close", Float),
			col("volume", Float),
		},
		ForeignKeys: []ForeignKey{fk("run_id", "strategy_runs", "run_id")},
		Indexes:     []Index{idx("idx_run_series_bars_run_id", "run_id")},
		OwnerParent: "run_id",
	},
	{
		Name:       "datasets",
		Ownership:  OwnershipOwned,
		PrimaryKey: []string{"dataset_id"},
		Columns: []Column{
			req("dataset_id", Text),
			req("name", Text),
			col("description", Text),
			col("created_utc", TimeUTC),
			col("sources_json", JSON),
			col("feature_config_json", JSON),
			col("user_id", Text),
		},
		ForeignKeys: []ForeignKey{fk("user_id", "users", "user_id")},
		Indexes:     []Index{idx("idx_datasets_user_id", "user_id")},
	},
	{
		Name:       "ml_dataset_samples",
		Ownership:  OwnershipDerived,
		PrimaryKey: []string{"sample_id"},
		Columns: []Column{
			req("sample_id", Text),
			req("dataset_id", Text),
			req("features_json", JSON),
		},
		ForeignKeys: []ForeignKey{fk("dataset_id", "datasets", "dataset_id")},
		Indexes:     []Index{idx("idx_ml_dataset_samples_dataset_id", "dataset_id")},
		OwnerParent: "dataset_id",
	},
	{
		Name:       "ml_reward_functions",
		Ownership:  OwnershipOwned,
		PrimaryKey: []string{"function_id"},
		Columns: []Column{
			req("function_id", Text),
			req("name", Text),
			req("code", Text),
			col("created_utc", TimeUTC),
			col("metadata_json", JSON),
			col("user_id", Text),
		},
		ForeignKeys: []ForeignKey{fk("user_id", "users", "user_id")},
		Indexes:     []Index{idx("idx_ml_reward_functions_user_id", "user_id")},
	},
	{
		Name:       "ml_model_architectures",
		Ownership:  OwnershipOwned,
		PrimaryKey: []string{"model_id"},
		Columns: []Column{
			req("model_id", Text),
			req("name", Text),
			col("spec_json", JSON),
			col("created_utc", TimeUTC),
			col("user_id", Text),
		},
		ForeignKeys: []ForeignKey{fk("user_id", "users", "user_id")},
		Indexes:     []Index{idx("idx_ml_model_architectures_user_id", "user_id")},
	},
	{
		Name:       "ml_training_processes",
		Ownership:  OwnershipOwned,
		PrimaryKey: []string{"process_id"},
		Columns: []Column{
			req("process_id", Text),
			req("name", Text),
			col("config_json", JSON),
			col("created_utc", TimeUTC),
			col("user_id", Text),
		},
		ForeignKeys: []ForeignKey{fk("user_id", "users", "user_id")},
		Indexes:     []Index{idx("idx_ml_training_processes_user_id", "user_id")},
	},
	{
		Name:       "ml_training_sessions",
		Ownership:  OwnershipOwned,
		PrimaryKey: []string{"session_id"},
		Columns: []Column{
			req("session_id", Text),
			req("name", Text),
			col("function_id", Text),
			col("model_id", Text),
			col("process_id", Text),
			{
				Name:    "status",
				Type:    EnumOf(model.SessionStatusPlanned, model.SessionStatusRunning, model.SessionStatusDone, model.SessionStatusFailed),
				NotNull: true,
				Default: "'PLANNED'",
			},
			col("created_utc", TimeUTC),
			col("user_id", Text),
		},
		ForeignKeys: []ForeignKey{
			fk("function_id", "ml_reward_functions", "function_id"),
			fk("model_id", "ml_model_architectures", "model_id"),
			fk("process_id", "ml_training_processes", "process_id"),
			fk("user_id", "users", "user_id"),
		},
		Indexes: []Index{idx("idx_ml_training_sessions_user_id", "user_id")},
	},
	{
		Name:       "ml_iterations",
		Ownership:  OwnershipDerived,
		PrimaryKey: []string{"iteration_id"},
		Columns: []Column{
			req("iteration_id", Text),
			req("session_id", Text),
			req("dataset_id", Text),
			{
				Name:    "status",
				Type:    EnumOf(model.IterationStatusPending, model.IterationStatusRunning, model.IterationStatusDone, model.IterationStatusFailed),
				NotNull: true,
				Default: "'PENDING'",
			},
			col("metrics_json", JSON),
			col("model_artifact_path", Text),
			col("start_utc", TimeUTC),
			col("end_utc", TimeUTC),
		},
		ForeignKeys: []ForeignKey{
			fk("session_id", "ml_training_sessions", "session_id"),
			fk("dataset_id", "datasets", "dataset_id"),
		},
		Indexes: []Index{
			idx("idx_ml_iterations_session_id", "session_id"),
			idx("idx_ml_iterations_dataset_id", "dataset_id"),
		},
		OwnerParent:   "session_id",
		TemporalPairs: [][2]string{{"start_utc", "end_utc"}},
	},
}

// Tables returns every declared table in declaration order.
func Tables() []Table { return registry }
