// perlin CLI — REPL d'indexation et de requêtes booléennes sur perlin-core.
//
// Usage :
//
//	perlin [-config perlin.yaml] [fichier-de-pages]
//	perlin                        (index en mémoire temporaire)
//
// Commandes spéciales (préfixées par .) :
//
//	.help               Affiche l'aide
//	.index <fichier>    Indexe un fichier texte (une ligne = un document)
//	.doc <termes...>    Indexe un document donné en ligne
//	.commit             Committe les listings (rend l'index interrogeable)
//	.df <terme>         Fréquence documentaire d'un terme
//	.estimate <a> <b>   Estime la taille de l'intersection de deux termes
//	.stats              Statistiques de l'index et du cache de pages
//	.save <préfixe>     Sauve snapshot + vocabulaire (<préfixe>.snap/.vocab)
//	.quit / .exit       Quitte le REPL
//
// Toute autre entrée est évaluée comme requête booléenne :
// `a AND b`, `a b` (AND implicite), `a OR b`, parenthèses.
package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/chzyer/readline"
	"github.com/olekukonko/tablewriter"
	"gopkg.in/yaml.v3"

	"github.com/CurrySoftware/perlin-core/index"
	"github.com/CurrySoftware/perlin-core/query"
	"github.com/CurrySoftware/perlin-core/storage"
)

const version = "0.1.0"

// config regroupe les réglages optionnels chargés depuis un fichier YAML.
type config struct {
	PageFile      string `yaml:"page_file"`
	CacheCapacity int    `yaml:"cache_capacity"`
	HistoryFile   string `yaml:"history_file"`
}

func loadConfig(path string) (config, error) {
	var cfg config
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

func main() {
	cfgPath := flag.String("config", "", "fichier de configuration YAML")
	flag.Parse()

	fmt.Printf("perlin v%s — index inversé compressé par blocs\n", version)
	fmt.Println("Tapez .help pour l'aide, .quit pour quitter.")
	fmt.Println()

	cfg, err := loadConfig(*cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Erreur: %v\n", err)
		os.Exit(1)
	}
	if args := flag.Args(); len(args) > 0 {
		cfg.PageFile = args[0]
	}

	var pmgr *storage.FsPageManager
	if cfg.PageFile == "" {
		fmt.Println("Mode mémoire (aucun fichier de pages)")
		pmgr = storage.NewMemPageManager()
	} else {
		fmt.Printf("Fichier de pages : %s\n", cfg.PageFile)
		pmgr, err = storage.NewFsPageManager(cfg.PageFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Erreur: %v\n", err)
			os.Exit(1)
		}
	}
	cache := storage.NewRamPageCacheSize(pmgr, cfg.CacheCapacity)
	defer cache.Close()

	ix := index.NewIndex(cache, index.NewSharedVocabulary[string]())

	history := cfg.HistoryFile
	if history == "" {
		history = os.TempDir() + "/perlin_history"
	}
	rl, err := readline.NewEx(&readline.Config{
		Prompt:      "perlin> ",
		HistoryFile: history,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Erreur: readline: %v\n", err)
		os.Exit(1)
	}
	defer rl.Close()

	for {
		line, err := rl.Readline()
		if err != nil {
			break
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, ".") {
			if !runCommand(line, ix) {
				break
			}
			continue
		}
		runQuery(line, ix)
	}
}

// runCommand exécute une commande point. Retourne false pour quitter.
func runCommand(line string, ix *index.Index[string]) bool {
	fields := strings.Fields(line)
	switch fields[0] {
	case ".quit", ".exit":
		return false
	case ".help":
		printHelp()
	case ".index":
		if len(fields) != 2 {
			fmt.Println("Usage : .index <fichier>")
			break
		}
		indexFile(fields[1], ix)
	case ".doc":
		if len(fields) < 2 {
			fmt.Println("Usage : .doc <termes...>")
			break
		}
		docId, err := ix.IndexDocument(termSeq(fields[1:]))
		if err != nil {
			fmt.Printf("Erreur: %v\n", err)
			break
		}
		fmt.Printf("Document %d indexé (%d termes)\n", docId, len(fields)-1)
	case ".commit":
		if err := ix.Commit(); err != nil {
			fmt.Printf("Erreur: %v\n", err)
			break
		}
		fmt.Println("Commit effectué.")
	case ".df":
		if len(fields) != 2 {
			fmt.Println("Usage : .df <terme>")
			break
		}
		df := 0
		if tid, ok := ix.Vocabulary().Get(fields[1]); ok {
			df = ix.TermDf(tid)
		}
		fmt.Printf("df(%s) = %d\n", fields[1], df)
	case ".estimate":
		if len(fields) != 3 {
			fmt.Println("Usage : .estimate <terme> <terme>")
			break
		}
		est := query.EstimateAtoms(ix, fields[1], fields[2], index.DefaultSampleSize)
		fmt.Printf("|%s ∩ %s| ≈ %d\n", fields[1], fields[2], est)
	case ".stats":
		printStats(ix)
	case ".save":
		if len(fields) != 2 {
			fmt.Println("Usage : .save <préfixe>")
			break
		}
		saveIndex(fields[1], ix)
	default:
		fmt.Printf("Commande inconnue : %s (voir .help)\n", fields[0])
	}
	return true
}

func printHelp() {
	fmt.Println(".index <fichier>    Indexe un fichier texte (une ligne = un document)")
	fmt.Println(".doc <termes...>    Indexe un document donné en ligne")
	fmt.Println(".commit             Committe les listings")
	fmt.Println(".df <terme>         Fréquence documentaire d'un terme")
	fmt.Println(".estimate <a> <b>   Estime la taille d'une intersection")
	fmt.Println(".stats              Statistiques index + cache")
	fmt.Println(".save <préfixe>     Sauve snapshot + vocabulaire")
	fmt.Println(".quit               Quitte")
	fmt.Println("Sinon : requête booléenne, ex. `chat AND (chien OR loup)`")
}

// termSeq transforme une slice de termes en séquence pour IndexDocument.
func termSeq(terms []string) func(yield func(string) bool) {
	return func(yield func(string) bool) {
		for _, t := range terms {
			if !yield(t) {
				return
			}
		}
	}
}

// indexFile indexe un fichier texte : chaque ligne est un document, les
// termes sont les champs séparés par des blancs, en minuscules.
func indexFile(path string, ix *index.Index[string]) {
	data, err := os.ReadFile(path)
	if err != nil {
		fmt.Printf("Erreur: %v\n", err)
		return
	}
	docs := 0
	for _, line := range strings.Split(string(data), "\n") {
		terms := strings.Fields(strings.ToLower(line))
		if len(terms) == 0 {
			continue
		}
		if _, err := ix.IndexDocument(termSeq(terms)); err != nil {
			fmt.Printf("Erreur: %v\n", err)
			return
		}
		docs++
	}
	fmt.Printf("%d documents indexés depuis %s (pensez à .commit)\n", docs, path)
}

func runQuery(line string, ix *index.Index[string]) {
	docs, err := query.Run(line, ix)
	if err != nil {
		fmt.Printf("Erreur: %v\n", err)
		return
	}
	if len(docs) == 0 {
		fmt.Println("Aucun document.")
		return
	}
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"doc id"})
	for _, d := range docs {
		table.Append([]string{strconv.FormatUint(uint64(d), 10)})
	}
	table.Render()
	fmt.Printf("%d documents.\n", len(docs))
}

func printStats(ix *index.Index[string]) {
	hits, misses, size, capacity := ix.Cache().CacheStats()
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"métrique", "valeur"})
	table.Append([]string{"documents", strconv.Itoa(ix.DocCount())})
	table.Append([]string{"termes", strconv.Itoa(ix.Vocabulary().Len())})
	table.Append([]string{"listings", strconv.Itoa(ix.NumListings())})
	table.Append([]string{"pages allouées", strconv.FormatUint(uint64(ix.Cache().Manager().TotalPages()), 10)})
	table.Append([]string{"cache hits", strconv.FormatUint(hits, 10)})
	table.Append([]string{"cache misses", strconv.FormatUint(misses, 10)})
	table.Append([]string{"cache size", fmt.Sprintf("%d/%d", size, capacity)})
	table.Append([]string{"cache hit rate", fmt.Sprintf("%.2f", ix.Cache().CacheHitRate())})
	table.Render()
}

// saveIndex écrit <préfixe>.snap (annuaire des listings) et
// <préfixe>.vocab (vocabulaire).
func saveIndex(prefix string, ix *index.Index[string]) {
	snap, err := os.Create(prefix + ".snap")
	if err != nil {
		fmt.Printf("Erreur: %v\n", err)
		return
	}
	defer snap.Close()
	if err := ix.WriteSnapshot(snap); err != nil {
		fmt.Printf("Erreur: %v\n", err)
		return
	}
	vocab, err := os.Create(prefix + ".vocab")
	if err != nil {
		fmt.Printf("Erreur: %v\n", err)
		return
	}
	defer vocab.Close()
	if err := index.SaveVocabulary(ix.Vocabulary(), vocab); err != nil {
		fmt.Printf("Erreur: %v\n", err)
		return
	}
	fmt.Printf("Index sauvé : %s.snap, %s.vocab\n", prefix, prefix)
}
