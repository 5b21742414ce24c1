package main

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/go-faster/errors"
	pgzip "github.com/klauspost/pgzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"golang.org/x/crypto/bcrypt"

	"github.com/xenking/kart-checkout/internal/domain/identity"
	"github.com/xenking/kart-checkout/internal/domain/product"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if !strings.HasSuffix(name, ".gz") {
		require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
		return path
	}

	f, err := os.Create(path)
	require.NoError(t, err)
	gz := pgzip.NewWriter(f)
	_, err = gz.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, gz.Close())
	require.NoError(t, f.Close())
	return path
}

type fakeAccounts struct {
	mu       sync.Mutex
	accounts map[string]identity.Account
	err      error
}

func (f *fakeAccounts) Upsert(_ context.Context, acc identity.Account) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	if f.accounts == nil {
		f.accounts = make(map[string]identity.Account)
	}
	f.accounts[acc.ID] = acc
	return nil
}

type fakeProducts struct {
	upserted []product.Product
}

func (f *fakeProducts) Upsert(_ context.Context, p product.Product) error {
	f.upserted = append(f.upserted, p)
	return nil
}

func TestStreamLines(t *testing.T) {
	const content = "a\n\n  \nb\nc\n"

	for _, name := range []string{"plain.txt", "packed.txt.gz"} {
		t.Run(name, func(t *testing.T) {
			path := writeFile(t, name, content)

			var got []string
			var nums []int
			err := streamLines(context.Background(), path, func(n int, line []byte) error {
				got = append(got, string(line))
				nums = append(nums, n)
				return nil
			})
			require.NoError(t, err)
			assert.Equal(t, []string{"a", "b", "c"}, got)
			assert.Equal(t, []int{1, 4, 5}, nums)
		})
	}

	t.Run("CallbackError", func(t *testing.T) {
		path := writeFile(t, "x.txt", "a\nb\n")
		err := streamLines(context.Background(), path, func(n int, _ []byte) error {
			if n == 2 {
				return errors.New("bad")
			}
			return nil
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "x.txt:2")
	})

	t.Run("Missing", func(t *testing.T) {
		err := streamLines(context.Background(), filepath.Join(t.TempDir(), "nope"), func(int, []byte) error { return nil })
		require.Error(t, err)
	})
}

func TestReadProducts(t *testing.T) {
	const valid = `[{"id":"1","name":"Waffle","price":6.5,"category":"Waffle","image":{"thumbnail":"t.jpg"}}]`

	t.Run("Gzip", func(t *testing.T) {
		products, err := readProducts(writeFile(t, "products.json.gz", valid))
		require.NoError(t, err)
		require.Len(t, products, 1)
		assert.Equal(t, "Waffle", products[0].Name)
		assert.Equal(t, "6.5", products[0].Price.String())
		assert.Equal(t, "t.jpg", products[0].Image.Thumbnail)
	})

	tests := []struct {
		name    string
		content string
	}{
		{name: "Malformed", content: `[{"id":`},
		{name: "MissingName", content: `[{"id":"1","price":1}]`},
		{name: "ZeroPrice", content: `[{"id":"1","name":"x","price":0}]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := readProducts(writeFile(t, "p.json", tt.content))
			require.Error(t, err)
		})
	}
}

func TestSeedProducts(t *testing.T) {
	repo := &fakeProducts{}
	n, err := seedProducts(context.Background(), zaptest.NewLogger(t), repo, "../../db/seed/products.json")
	require.NoError(t, err)
	assert.Equal(t, 9, n)
	assert.Len(t, repo.upserted, 9)
}

func TestFindDuplicates(t *testing.T) {
	first := writeFile(t, "a.jsonl", strings.Join([]string{
		`{"id":"1","identifier":"alice@example.com","secret":"s"}`,
		`{"id":"2","identifier":"bob@example.com","secret":"s"}`,
		`not json`,
	}, "\n"))
	second := writeFile(t, "b.jsonl.gz", strings.Join([]string{
		`{"id":"3","identifier":" ALICE@example.com ","secret":"s"}`,
		`{"id":"4","identifier":"carol@example.com","secret":"s"}`,
	}, "\n"))

	dups, err := findDuplicates(context.Background(), zaptest.NewLogger(t), []string{first, second}, 100)
	require.NoError(t, err)

	var keys []string
	for k := range dups {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	assert.Equal(t, []string{"alice@example.com"}, keys)
}

func TestSeedAccounts(t *testing.T) {
	path := writeFile(t, "accounts.jsonl", strings.Join([]string{
		`{"id":"1","identifier":"alice@example.com","secret":"first"}`,
		`{"id":"2","identifier":"bob@example.com","secret":"bob"}`,
		`{"id":"3","identifier":"Alice@Example.com","secret":"second"}`,
		`{"id":"4","identifier":"","secret":"x"}`,
		`{broken`,
	}, "\n"))

	repo := &fakeAccounts{}
	res, err := seedAccounts(context.Background(), zaptest.NewLogger(t), repo, accountsConfig{
		Files:    []string{path},
		Capacity: 10,
		Cost:     bcrypt.MinCost,
		Workers:  2,
	})
	require.NoError(t, err)
	assert.Equal(t, accountsResult{Upserted: 2, Duplicates: 1, Invalid: 2}, res)

	require.Len(t, repo.accounts, 2)
	alice := repo.accounts["1"]
	assert.Equal(t, "alice@example.com", alice.Identifier)
	assert.NoError(t, bcrypt.CompareHashAndPassword(alice.PasswordHash, []byte("first")))
	assert.NotContains(t, repo.accounts, "3")
}

func TestSeedAccounts_UpsertError(t *testing.T) {
	path := writeFile(t, "accounts.jsonl", `{"id":"1","identifier":"a","secret":"s"}`)

	repo := &fakeAccounts{err: errors.New("db down")}
	_, err := seedAccounts(context.Background(), zaptest.NewLogger(t), repo, accountsConfig{
		Files:    []string{path},
		Capacity: 10,
		Cost:     bcrypt.MinCost,
		Workers:  1,
	})
	require.ErrorContains(t, err, "db down")
}
