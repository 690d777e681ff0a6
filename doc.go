/*
Package cohort places a user into experiment variants deterministically and remembers the decision.

Each user gets a stable identity in [0, 100000), stored once under "experiment_user_id".
An experiment admits the share of that space given by its sample size, draws a weighted
variant for admitted users, and persists the result under "experiment_<id>" so that every
later call, in this process or the next, sees the same decision.

# Usage

	store := file.New(".cohort/store")

	exp, err := cohort.New(ctx, "checkout-button",
		cohort.WithStore(store),
		cohort.WithSampleSize(0.5),
	)
	if err != nil {
		log.Fatal(err)
	}

	_ = exp.AddVariant("green", showGreen, cohort.WithWeight(0.5))
	_ = exp.AddVariant("blue", showBlue, cohort.WithWeight(0.5))

	if _, err := exp.Segment(ctx); err != nil {
		log.Fatal(err)
	}
	_ = exp.Start(ctx) // runs showGreen or showBlue, or nothing when outside the sample

	// later, on conversion
	_ = exp.Complete(ctx)

# Storage

Anything implementing ports.KeyValueStore works. The module ships memory, file, redis,
badger and sqlite adapters under pkg/adapters, plus namespace and encryption middleware
under pkg/persistence/middleware.
*/
package cohort
