package bulkupsert_test

import (
	"errors"
	"fmt"

	"github.com/coregx/bulkupsert"
)

func ExampleBuilder_Upsert() {
	b := bulkupsert.NewBuilder(bulkupsert.Table("t"))

	stmt, err := b.Upsert(bulkupsert.NewRow("id", 1, "email", "a@x.com", "name", "A"))
	if err != nil {
		panic(err)
	}
	fmt.Println(stmt.SQL())
	fmt.Println(stmt.Params())
	// Output:
	// INSERT INTO `t`(`id`,`email`,`name`) VALUES
	// (?,?,?)
	// ON DUPLICATE KEY UPDATE `id` = VALUES(`id`), `email` = VALUES(`email`), `name` = VALUES(`name`)
	// [1 a@x.com A]
}

func ExampleBuilder_Upsert_assignments() {
	b := bulkupsert.NewBuilder(bulkupsert.TableWithPrefix("app_", "counters", "id"))

	stmt, err := b.Upsert(bulkupsert.Batch{
		bulkupsert.NewRow("id", 1, "hits", 1, "seen_at", bulkupsert.Raw("NOW()")),
		bulkupsert.NewRow("id", 2, "hits", 1, "seen_at", bulkupsert.Raw("NOW()")),
	}, bulkupsert.Assign("hits", "hits + VALUES(hits)"), bulkupsert.Col("seen_at"))
	if err != nil {
		panic(err)
	}
	fmt.Println(stmt.SQL())
	fmt.Println(len(stmt.Params()))
	// Output:
	// INSERT INTO `app_counters`(`id`,`hits`,`seen_at`) VALUES
	// (?,?,NOW()), (?,?,NOW())
	// ON DUPLICATE KEY UPDATE hits = hits + VALUES(hits), `seen_at` = VALUES(`seen_at`)
	// 4
}

func ExampleBuilder_InsertIgnore() {
	b := bulkupsert.NewBuilder(bulkupsert.Table("tags"))

	stmt, err := b.InsertIgnore([]map[string]any{
		{"id": 1, "name": "go"},
		{"id": 2, "name": "sql"},
	})
	if err != nil {
		panic(err)
	}
	fmt.Println(stmt.SQL())
	// Output:
	// INSERT IGNORE INTO `tags`(`id`,`name`) VALUES
	// (?,?), (?,?)
}

func ExampleBuilder_Replace() {
	type tag struct {
		ID   int    `db:"id,pk"`
		Name string `db:"name"`
	}

	b := bulkupsert.NewBuilder(bulkupsert.Table("tags"), bulkupsert.WithRequirePrimaryKey(true))
	stmt, err := b.Replace([]tag{{ID: 1, Name: "go"}})
	if err != nil {
		panic(err)
	}
	fmt.Println(stmt.SQL())
	fmt.Println(stmt.Params())
	// Output:
	// REPLACE INTO `tags`(`id`,`name`) VALUES
	// (?,?)
	// [1 go]
}

func ExampleWithDialectName() {
	b := bulkupsert.NewBuilder(bulkupsert.Table("t"), bulkupsert.WithDialectName("sqlite"))

	stmt, err := b.Upsert(bulkupsert.NewRow("id", 1))
	if err != nil {
		panic(err)
	}
	fmt.Printf("%q\n", stmt.SQL())
	// Output:
	// "INSERT INTO `t`(`id`) VALUES\n(?)\n"
}

func ExampleBuilder_BuildChunks() {
	b := bulkupsert.NewBuilder(bulkupsert.Table("t"))

	batch := make(bulkupsert.Batch, 40000)
	for i := range batch {
		batch[i] = bulkupsert.NewRow("id", i, "value", i*2)
	}

	stmts, err := b.BuildChunks(bulkupsert.KindUpsert, batch)
	if err != nil {
		panic(err)
	}
	for _, stmt := range stmts {
		fmt.Println(stmt.RowCount(), len(stmt.Params()))
	}
	// Output:
	// 32767 65534
	// 7233 14466
}

func ExampleBuilder_Upsert_columnMismatch() {
	b := bulkupsert.NewBuilder(bulkupsert.Table("t"))

	_, err := b.Upsert(bulkupsert.Batch{
		bulkupsert.NewRow("id", 1, "email", "a@x.com"),
		bulkupsert.NewRow("id", 2),
	})
	fmt.Println(errors.Is(err, bulkupsert.ErrColumnMismatch))
	// Output:
	// true
}
